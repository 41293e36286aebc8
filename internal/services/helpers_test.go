package services

import (
	"context"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"github.com/stretchr/testify/mock"
)

func createTestConfig() *config.Config {
	return &config.Config{
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: config.CacheConfig{
			Enabled:    true,
			CatalogTTL: 60,
		},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret",
			JWTIssuer: "mvrouter",
			TokenTTL:  3600,
		},
		Dispatch: config.DispatchConfig{Timeout: 5},
	}
}

func createTestLogger() *logger.Logger {
	return logger.NewLogger(createTestConfig())
}

// staticSecrets is a secret lookup backed by a map
func staticSecrets(secrets map[string]string) config.SecretLookup {
	return func(slug string) (string, bool) {
		value, ok := secrets[slug]
		return value, ok
	}
}

// MockCatalogRepository is a mock implementation of CatalogRepository for testing
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetProviderBySlug(ctx context.Context, slug string) (*models.Provider, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Provider), args.Error(1)
}

func (m *MockCatalogRepository) GetModel(ctx context.Context, providerID, slug string) (*models.AIModel, error) {
	args := m.Called(ctx, providerID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AIModel), args.Error(1)
}

func (m *MockCatalogRepository) GetDefaultModel(ctx context.Context, providerID string) (*models.AIModel, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AIModel), args.Error(1)
}

func (m *MockCatalogRepository) GetEndpoint(ctx context.Context, providerID, name string) (*models.Endpoint, error) {
	args := m.Called(ctx, providerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Endpoint), args.Error(1)
}

func (m *MockCatalogRepository) GetDefaultEndpoint(ctx context.Context, providerID string) (*models.Endpoint, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Endpoint), args.Error(1)
}

func (m *MockCatalogRepository) GetActiveMappingSet(ctx context.Context, endpointID string) (*models.MappingSet, error) {
	args := m.Called(ctx, endpointID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MappingSet), args.Error(1)
}

func (m *MockCatalogRepository) GetParameterSet(ctx context.Context, id string) (*models.ParameterSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParameterSet), args.Error(1)
}

// MockAPITokenRepository is a mock implementation of APITokenRepository for testing
type MockAPITokenRepository struct {
	mock.Mock
}

func (m *MockAPITokenRepository) Create(ctx context.Context, token *models.APIToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAPITokenRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIToken, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIToken), args.Error(1)
}

func (m *MockAPITokenRepository) TouchLastUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRequestLogRepository is a mock implementation of RequestLogRepository for testing
type MockRequestLogRepository struct {
	mock.Mock
}

func (m *MockRequestLogRepository) Create(ctx context.Context, log *models.RequestLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRequestLogRepository) GetByRequestID(ctx context.Context, requestID string) (*models.RequestLog, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RequestLog), args.Error(1)
}

func (m *MockRequestLogRepository) GetRecent(ctx context.Context, callerID string, limit, offset int) ([]*models.RequestLog, error) {
	args := m.Called(ctx, callerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RequestLog), args.Error(1)
}
