package handlers

import (
	"net/http"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/middleware"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/repositories"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// RequestLogHandler lets a caller read back the outcome of its own gateway requests
type RequestLogHandler struct {
	logger  *logger.Logger
	logRepo repositories.RequestLogRepository
}

// NewRequestLogHandler creates a new request log handler
func NewRequestLogHandler(logger *logger.Logger, logRepo repositories.RequestLogRepository) *RequestLogHandler {
	return &RequestLogHandler{
		logger:  logger,
		logRepo: logRepo,
	}
}

// RegisterRoutes registers the request log routes on an authenticated router
func (h *RequestLogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/requests", h.HandleList).Methods(http.MethodGet)
	router.HandleFunc("/requests/{requestId}", h.HandleGet).Methods(http.MethodGet)
}

// HandleList returns the caller's most recent request logs
func (h *RequestLogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if caller == nil {
		writeErrorResponse(w, h.logger, services.NewUnauthorizedError("caller credential is missing"))
		return
	}

	limit, offset := parsePaginationParams(r)
	logs, err := h.logRepo.GetRecent(ctx, caller.ID, limit, offset)
	if err != nil {
		writeErrorResponse(w, h.logger, services.NewConfigurationError("failed to list request logs", err))
		return
	}

	writeSuccess(w, "Request logs", logs)
}

// HandleGet returns one request log. Logs of other callers are reported as missing.
func (h *RequestLogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if caller == nil {
		writeErrorResponse(w, h.logger, services.NewUnauthorizedError("caller credential is missing"))
		return
	}

	requestID := mux.Vars(r)["requestId"]
	log, err := h.logRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		writeErrorResponse(w, h.logger, services.NewConfigurationError("failed to read request log", err))
		return
	}
	if log == nil || log.CallerID != caller.ID {
		writeErrorResponse(w, h.logger, services.NewNotFoundError("request", requestID))
		return
	}

	writeSuccess(w, "Request log", log)
}

func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit

	if parsed, err := cast.ToIntE(r.URL.Query().Get("limit")); err == nil && parsed > 0 && parsed <= maxPageLimit {
		limit = parsed
	}
	if parsed, err := cast.ToIntE(r.URL.Query().Get("offset")); err == nil && parsed >= 0 {
		offset = parsed
	}

	return limit, offset
}
