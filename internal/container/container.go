package container

import (
	"context"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/database"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/handlers"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/middleware"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/repositories"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/server"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/go-redis/redis/v8"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// CoreModule provides configuration, logging and the catalog database
var CoreModule = fx.Options(
	// Configuration
	fx.Provide(config.LoadConfig),

	// Logging
	fx.Provide(logger.NewLogger),

	// Database
	fx.Provide(database.NewConnection),
	fx.Provide(func(conn *database.Connection) *gorm.DB {
		return conn.DB
	}),
	fx.Provide(database.NewMigrator),
	fx.Provide(database.NewSeeder),

	// Models (for validation and serialization)
	fx.Provide(models.NewValidationService),

	fx.Invoke(func(lc fx.Lifecycle, conn *database.Connection) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return conn.Close()
			},
		})
	}),
)

// AuthModule provides caller authentication on top of CoreModule
var AuthModule = fx.Options(
	fx.Provide(repositories.NewAPITokenRepository),
	fx.Provide(services.NewAuthenticationService),
)

// Module provides dependency injection configuration for the gateway server
var Module = fx.Options(
	CoreModule,
	AuthModule,

	// Cache
	fx.Provide(database.NewRedisClient),
	fx.Provide(services.NewCacheService),

	// Repositories
	fx.Provide(func(db *gorm.DB, cache *services.CacheService, cfg *config.Config, log *logger.Logger) repositories.CatalogRepository {
		return services.NewCachedCatalog(repositories.NewCatalogRepository(db), cache, cfg, log)
	}),
	fx.Provide(repositories.NewRequestLogRepository),

	// Services
	fx.Provide(config.NewSecretLookup),
	fx.Provide(services.NewProviderAuthTable),
	fx.Provide(services.NewProviderDispatcher),
	fx.Provide(services.NewStructuralRepairer),
	fx.Provide(services.NewTransformationService),
	fx.Provide(services.NewSchemaService),
	fx.Provide(services.NewGatewayMetrics),
	fx.Provide(services.NewAPIGatewayService),

	// Handlers
	fx.Provide(handlers.NewGatewayHandler),
	fx.Provide(handlers.NewMappingHandler),
	fx.Provide(handlers.NewRequestLogHandler),
	fx.Provide(newHealthHandler),

	// Middleware
	fx.Provide(middleware.NewAuthenticationMiddleware),

	// Server
	fx.Provide(server.NewServer),

	fx.Invoke(func(lc fx.Lifecycle, client *redis.Client) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}),

	// Invoke migrations on startup
	fx.Invoke(func(migrator *database.Migrator) error {
		return migrator.Up()
	}),
)

// newHealthHandler probes the catalog database and the cache
func newHealthHandler(conn *database.Connection, cache *services.CacheService) *handlers.HealthHandler {
	return handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": conn,
		"redis":    cache,
	}, []string{"database", "redis"})
}
