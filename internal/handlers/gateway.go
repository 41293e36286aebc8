package handlers

import (
	"net/http"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/middleware"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/gorilla/mux"
)

// Response headers describing the resolved route
const (
	HeaderProvider = "X-MVRouter-Provider"
	HeaderEndpoint = "X-MVRouter-Endpoint"
	HeaderModel    = "X-MVRouter-Model"
)

// GatewayHandler serves the inbound canonical request route
type GatewayHandler struct {
	logger  *logger.Logger
	gateway services.APIGatewayService
}

// NewGatewayHandler creates a new gateway handler
func NewGatewayHandler(logger *logger.Logger, gateway services.APIGatewayService) *GatewayHandler {
	return &GatewayHandler{
		logger:  logger,
		gateway: gateway,
	}
}

// RegisterRoutes registers the gateway route on an authenticated router
func (h *GatewayHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/gateway", h.HandleInvoke).Methods(http.MethodPost)
}

// HandleInvoke runs one canonical request and wraps the provider payload in the envelope
func (h *GatewayHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body map[string]interface{}
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeErrorResponse(w, h.logger, err)
		return
	}
	if body == nil {
		writeErrorResponse(w, h.logger, services.NewBadRequestError("request body must be a JSON object", nil))
		return
	}

	result, err := h.gateway.HandleRequest(ctx, middleware.GetCallerFromContext(ctx), middleware.GetRequestID(ctx), body)
	if err != nil {
		writeErrorResponse(w, h.logger, err)
		return
	}

	w.Header().Set(HeaderProvider, result.Provider)
	w.Header().Set(HeaderEndpoint, result.Endpoint)
	w.Header().Set(HeaderModel, result.Model)
	writeSuccess(w, "Request completed", result.Data)
}
