package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	// CallerContextKey is the context key for the verified caller
	CallerContextKey ContextKey = "caller"
	// RequestIDContextKey is the context key for the request id
	RequestIDContextKey ContextKey = "request_id"
)

// Caller credential headers
const (
	HeaderAPIKey        = "X-API-Key"
	HeaderAuthorization = "Authorization"
	HeaderGenericAPIKey = "api-key"
)

// AuthenticationMiddleware verifies caller credentials
type AuthenticationMiddleware struct {
	logger  *logger.Logger
	authSvc services.AuthenticationService
}

// NewAuthenticationMiddleware creates a new authentication middleware
func NewAuthenticationMiddleware(logger *logger.Logger, authSvc services.AuthenticationService) *AuthenticationMiddleware {
	return &AuthenticationMiddleware{
		logger:  logger,
		authSvc: authSvc,
	}
}

// RequireCaller accepts a credential in any of the three header forms and stores the
// verified caller in the request context. Anything else is answered with 401.
func (m *AuthenticationMiddleware) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		credential := services.ExtractCredential(
			r.Header.Get(HeaderAPIKey),
			r.Header.Get(HeaderAuthorization),
			r.Header.Get(HeaderGenericAPIKey),
		)
		if credential == "" {
			writeUnauthorized(w, "caller credential is missing")
			return
		}

		caller, err := m.authSvc.Authenticate(ctx, credential)
		if err != nil {
			m.logger.WithRequest(GetRequestID(ctx)).WithError(err).Warn("Caller authentication failed")
			writeUnauthorized(w, "caller credential is invalid")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorEnvelope(string(services.ErrorCodeUnauthorized), message, nil))
}

// WithCaller returns a context carrying caller
func WithCaller(ctx context.Context, caller *models.Caller) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}

// GetCallerFromContext extracts the caller from the request context
func GetCallerFromContext(ctx context.Context) *models.Caller {
	caller, ok := ctx.Value(CallerContextKey).(*models.Caller)
	if !ok {
		return nil
	}
	return caller
}
