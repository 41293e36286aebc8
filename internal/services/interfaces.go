package services

import (
	"context"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
)

// APIGatewayService runs canonical requests through the translation pipeline
type APIGatewayService interface {
	HandleRequest(ctx context.Context, caller *models.Caller, requestID string, body map[string]interface{}) (*GatewayResult, error)
}

// TransformationService maps canonical requests onto provider buckets
type TransformationService interface {
	Transform(ctx context.Context, inbound map[string]interface{}, mappings []models.MappingRecord, defaults map[string]interface{}) models.TransformedRequest
}

// StructuralRepairer reshapes a mapped request when flat mapping cannot express the provider's shape.
// Implementations are fail-open: on any failure the input is returned unchanged.
type StructuralRepairer interface {
	Repair(ctx context.Context, req models.TransformedRequest, meta ProviderMeta, schema models.ParameterSchema) (models.TransformedRequest, RepairOutcome)
}

// ProviderDispatcher authenticates and sends requests to providers
type ProviderDispatcher interface {
	Dispatch(ctx context.Context, endpointURL string, req models.TransformedRequest, providerSlug string) (*ProviderResponse, error)
	Prepare(ctx context.Context, endpointURL string, req models.TransformedRequest, providerSlug string) (*PreparedRequest, error)
	Send(ctx context.Context, prepared *PreparedRequest) (*ProviderResponse, error)
}

// SchemaService validates schemas and compiles mapping sets
type SchemaService interface {
	ValidateSchema(ctx context.Context, schema models.ParameterSchema) error
	CheckMapping(ctx context.Context, sourceType, targetType models.NormalizedType) error
	CompileMappingSet(ctx context.Context, providerSchema, canonicalSchema models.ParameterSchema, records []models.MappingRecord) (CompileReport, error)
	DetectURLParameters(ctx context.Context, template string) (URLParameters, error)
	ApplyURLTemplate(ctx context.Context, schema models.ParameterSchema, previous *URLParameters, template string) (models.ParameterSchema, URLParameterDiff, error)
}

// AuthenticationService verifies caller credentials and issues new ones
type AuthenticationService interface {
	Authenticate(ctx context.Context, credential string) (*models.Caller, error)
	ValidateAPIToken(ctx context.Context, token string) (*models.Caller, error)
	ValidateJWT(ctx context.Context, token string) (*models.Caller, error)
	IssueAPIToken(ctx context.Context, name, subject string, expiresIn time.Duration) (string, *models.APIToken, error)
	GenerateJWT(ctx context.Context, subject, name string) (string, error)
}
