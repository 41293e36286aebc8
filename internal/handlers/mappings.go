package handlers

import (
	"errors"
	"net/http"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/gorilla/mux"
)

// MappingHandler serves the mapping-authoring checks
type MappingHandler struct {
	logger    *logger.Logger
	schemaSvc services.SchemaService
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(logger *logger.Logger, schemaSvc services.SchemaService) *MappingHandler {
	return &MappingHandler{
		logger:    logger,
		schemaSvc: schemaSvc,
	}
}

// RegisterRoutes registers the mapping routes on an authenticated router
func (h *MappingHandler) RegisterRoutes(router *mux.Router) {
	mappings := router.PathPrefix("/mappings").Subrouter()
	mappings.HandleFunc("/validate-schema", h.HandleValidateSchema).Methods(http.MethodPost)
	mappings.HandleFunc("/check-types", h.HandleCheckTypes).Methods(http.MethodPost)
	mappings.HandleFunc("/compile", h.HandleCompile).Methods(http.MethodPost)
	mappings.HandleFunc("/url-parameters", h.HandleURLParameters).Methods(http.MethodPost)
}

// ValidateSchemaRequest is the body of validate-schema
type ValidateSchemaRequest struct {
	Schema models.ParameterSchema `json:"schema"`
}

// SchemaValidation is the verdict of validate-schema
type SchemaValidation struct {
	Valid      bool                   `json:"valid"`
	Duplicates []string               `json:"duplicates"`
	Fields     models.FlattenedSchema `json:"fields"`
}

// CheckTypesRequest is the body of check-types. Raw type names are normalized first.
type CheckTypesRequest struct {
	SourceType string `json:"source_type"`
	TargetType string `json:"target_type"`
}

// TypeCheck is the verdict of check-types
type TypeCheck struct {
	Valid      bool                  `json:"valid"`
	SourceType models.NormalizedType `json:"source_type"`
	TargetType models.NormalizedType `json:"target_type"`
	Reason     string                `json:"reason,omitempty"`
}

// CompileRequest is the body of compile
type CompileRequest struct {
	ProviderSchema  models.ParameterSchema `json:"provider_schema"`
	CanonicalSchema models.ParameterSchema `json:"canonical_schema"`
	Records         []models.MappingRecord `json:"records"`
}

// CompileResult is the verdict of compile
type CompileResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
	Warnings []string `json:"warnings"`
}

// URLParametersRequest is the body of url-parameters. Previous and Schema are optional.
type URLParametersRequest struct {
	Template string                  `json:"template"`
	Previous *services.URLParameters `json:"previous,omitempty"`
	Schema   *models.ParameterSchema `json:"schema,omitempty"`
}

// URLParametersResult reports detected parameters and, when requested, the diff and updated schema
type URLParametersResult struct {
	Parameters services.URLParameters     `json:"parameters"`
	Diff       *services.URLParameterDiff `json:"diff,omitempty"`
	Removed    []string                   `json:"removed,omitempty"`
	Schema     *models.ParameterSchema    `json:"schema,omitempty"`
}

// HandleValidateSchema reports names used by more than one schema category
func (h *MappingHandler) HandleValidateSchema(w http.ResponseWriter, r *http.Request) {
	var req ValidateSchemaRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, h.logger, err)
		return
	}

	result := SchemaValidation{Valid: true, Duplicates: []string{}, Fields: req.Schema.Flatten()}
	if err := h.schemaSvc.ValidateSchema(r.Context(), req.Schema); err != nil {
		var dupErr *services.DuplicateNameError
		if !errors.As(err, &dupErr) {
			writeErrorResponse(w, h.logger, err)
			return
		}
		result.Valid = false
		result.Duplicates = dupErr.Names
	}

	writeSuccess(w, "Schema checked", result)
}

// HandleCheckTypes reports whether sourceType may be mapped onto targetType
func (h *MappingHandler) HandleCheckTypes(w http.ResponseWriter, r *http.Request) {
	var req CheckTypesRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, h.logger, err)
		return
	}
	if req.SourceType == "" || req.TargetType == "" {
		writeErrorResponse(w, h.logger, services.NewBadRequestError("source_type and target_type are required", nil))
		return
	}

	result := TypeCheck{
		Valid:      true,
		SourceType: models.NormalizeType(req.SourceType),
		TargetType: models.NormalizeType(req.TargetType),
	}
	if err := h.schemaSvc.CheckMapping(r.Context(), result.SourceType, result.TargetType); err != nil {
		result.Valid = false
		result.Reason = err.Error()
	}

	writeSuccess(w, "Types checked", result)
}

// HandleCompile validates a full mapping set against both schemas
func (h *MappingHandler) HandleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, h.logger, err)
		return
	}

	report, err := h.schemaSvc.CompileMappingSet(r.Context(), req.ProviderSchema, req.CanonicalSchema, req.Records)
	var validationErr *services.MappingValidationError
	if err != nil && !errors.As(err, &validationErr) {
		writeErrorResponse(w, h.logger, err)
		return
	}

	writeSuccess(w, "Mapping set compiled", CompileResult{
		Valid:    report.Valid(),
		Problems: report.Problems,
		Warnings: report.Warnings,
	})
}

// HandleURLParameters detects template parameters, diffs them against previous and
// reconciles schema when one is supplied
func (h *MappingHandler) HandleURLParameters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req URLParametersRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, h.logger, err)
		return
	}

	detected, err := h.schemaSvc.DetectURLParameters(ctx, req.Template)
	if err != nil {
		writeErrorResponse(w, h.logger, err)
		return
	}
	result := URLParametersResult{Parameters: detected}

	switch {
	case req.Schema != nil:
		schema, diff, err := h.schemaSvc.ApplyURLTemplate(ctx, *req.Schema, req.Previous, req.Template)
		if err != nil {
			writeErrorResponse(w, h.logger, err)
			return
		}
		result.Schema = &schema
		result.Diff = &diff
		result.Removed = diff.Removed()
	case req.Previous != nil:
		diff := services.DiffURLParameters(*req.Previous, detected)
		result.Diff = &diff
		result.Removed = diff.Removed()
	}

	writeSuccess(w, "URL parameters detected", result)
}
