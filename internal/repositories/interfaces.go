package repositories

import (
	"context"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
)

// CatalogRepository is the read-only view of the catalog the gateway consumes.
// Lookups return nil, nil when the entity does not exist or is inactive.
type CatalogRepository interface {
	GetProviderBySlug(ctx context.Context, slug string) (*models.Provider, error)
	GetModel(ctx context.Context, providerID, slug string) (*models.AIModel, error)
	GetDefaultModel(ctx context.Context, providerID string) (*models.AIModel, error)
	GetEndpoint(ctx context.Context, providerID, name string) (*models.Endpoint, error)
	GetDefaultEndpoint(ctx context.Context, providerID string) (*models.Endpoint, error)
	GetActiveMappingSet(ctx context.Context, endpointID string) (*models.MappingSet, error)
	GetParameterSet(ctx context.Context, id string) (*models.ParameterSet, error)
}

// APITokenRepository defines the interface for caller token data operations
type APITokenRepository interface {
	Create(ctx context.Context, token *models.APIToken) error
	GetByPrefix(ctx context.Context, prefix string) (*models.APIToken, error)
	TouchLastUsed(ctx context.Context, id string) error
}

// RequestLogRepository defines the interface for request log data operations
type RequestLogRepository interface {
	Create(ctx context.Context, log *models.RequestLog) error
	GetByRequestID(ctx context.Context, requestID string) (*models.RequestLog, error)
	GetRecent(ctx context.Context, callerID string, limit, offset int) ([]*models.RequestLog, error)
}
