package mvrouter

import (
	"encoding/json"
	"fmt"
)

// Error codes returned by the gateway
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeConfigurationError = "CONFIGURATION_ERROR"
	CodeProviderError      = "PROVIDER_ERROR"
)

// Envelope is the response wrapper of every API route
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Route is filled from response headers by Invoke
	Route Route `json:"-"`
}

// Decode unmarshals the envelope data into v
func (e *Envelope) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Route names what the gateway resolved a request to
type Route struct {
	RequestID string
	Provider  string
	Endpoint  string
	Model     string
}

// APIError is a non-success envelope
type APIError struct {
	StatusCode     int
	Code           string
	Message        string
	ProviderStatus int
	ProviderBody   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type providerErrorData struct {
	ProviderStatus int    `json:"provider_status"`
	ProviderBody   string `json:"provider_body"`
}

// FlattenedField is one addressable schema field
type FlattenedField struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// FlattenedSchema groups flattened fields by category
type FlattenedSchema struct {
	Headers    []FlattenedField `json:"headers"`
	Parameters []FlattenedField `json:"parameters"`
	Body       []FlattenedField `json:"body"`
	Query      []FlattenedField `json:"query"`
}

// SchemaValidation is the verdict of ValidateSchema
type SchemaValidation struct {
	Valid      bool            `json:"valid"`
	Duplicates []string        `json:"duplicates"`
	Fields     FlattenedSchema `json:"fields"`
}

// TypeCheck is the verdict of CheckTypes
type TypeCheck struct {
	Valid      bool   `json:"valid"`
	SourceType string `json:"source_type"`
	TargetType string `json:"target_type"`
	Reason     string `json:"reason,omitempty"`
}

// MappingRecord connects a provider field to a canonical field
type MappingRecord struct {
	FromField      string `json:"fromField"`
	ToField        string `json:"toField"`
	FieldType      string `json:"fieldType"`
	Transformation string `json:"transformation,omitempty"`
}

// CompileResult is the verdict of Compile
type CompileResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
	Warnings []string `json:"warnings"`
}

// URLParameters are the placeholders and query keys of a URL template
type URLParameters struct {
	Path  []string `json:"path"`
	Query []string `json:"query"`
}

// URLParameterDiff is the difference between two URLParameters snapshots
type URLParameterDiff struct {
	AddedPath    []string `json:"added_path"`
	RemovedPath  []string `json:"removed_path"`
	AddedQuery   []string `json:"added_query"`
	RemovedQuery []string `json:"removed_query"`
}

// URLParametersResult is the result of DetectURLParameters
type URLParametersResult struct {
	Parameters URLParameters     `json:"parameters"`
	Diff       *URLParameterDiff `json:"diff,omitempty"`
	Removed    []string          `json:"removed,omitempty"`
}
