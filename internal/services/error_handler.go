package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
)

// ErrorCode is the stable machine-readable code carried by every gateway error
type ErrorCode string

const (
	ErrorCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrorCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrorCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrorCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrorCodeProvider      ErrorCode = "PROVIDER_ERROR"
)

var codeStatus = map[ErrorCode]int{
	ErrorCodeUnauthorized:  http.StatusUnauthorized,
	ErrorCodeBadRequest:    http.StatusBadRequest,
	ErrorCodeNotFound:      http.StatusNotFound,
	ErrorCodeConfiguration: http.StatusInternalServerError,
	ErrorCodeProvider:      http.StatusBadGateway,
}

var codeState = map[ErrorCode]models.RequestState{
	ErrorCodeBadRequest:    models.StateBadRequest,
	ErrorCodeNotFound:      models.StateNotFound,
	ErrorCodeConfiguration: models.StateConfigurationError,
	ErrorCodeProvider:      models.StateProviderError,
}

// GatewayError is a classified failure of a gateway request
type GatewayError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int

	// ProviderStatus and ProviderBody are set for PROVIDER_ERROR only
	ProviderStatus int
	ProviderBody   string

	Err error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// State returns the terminal request state matching the error code
func (e *GatewayError) State() models.RequestState {
	if state, ok := codeState[e.Code]; ok {
		return state
	}
	return models.StateConfigurationError
}

func newGatewayError(code ErrorCode, message string, err error) *GatewayError {
	return &GatewayError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeStatus[code],
		Err:        err,
	}
}

// NewUnauthorizedError reports a missing or invalid caller credential
func NewUnauthorizedError(message string) *GatewayError {
	return newGatewayError(ErrorCodeUnauthorized, message, nil)
}

// NewBadRequestError reports malformed input
func NewBadRequestError(message string, err error) *GatewayError {
	return newGatewayError(ErrorCodeBadRequest, message, err)
}

// NewNotFoundError reports a missing catalog entity or provider secret
func NewNotFoundError(entity, key string) *GatewayError {
	return newGatewayError(ErrorCodeNotFound, fmt.Sprintf("%s not found: %s", entity, key), nil)
}

// NewConfigurationError reports catalog data that cannot be used for dispatch
func NewConfigurationError(message string, err error) *GatewayError {
	return newGatewayError(ErrorCodeConfiguration, message, err)
}

// NewProviderError reports a non-2xx upstream response
func NewProviderError(message string, status int, body string) *GatewayError {
	e := newGatewayError(ErrorCodeProvider, message, nil)
	e.ProviderStatus = status
	e.ProviderBody = body
	return e
}

// AsGatewayError returns err as a GatewayError. Unclassified errors become CONFIGURATION_ERROR.
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return NewConfigurationError("internal error", err)
}

// DuplicateNameError lists every parameter name used by more than one category of a schema
type DuplicateNameError struct {
	Names []string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate parameter names across categories: %s", strings.Join(e.Names, ", "))
}

// TypeMismatchError rejects a mapping between two incompatible concrete types
type TypeMismatchError struct {
	Source models.NormalizedType
	Target models.NormalizedType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: cannot map %s to %s", e.Source, e.Target)
}

// MappingValidationError lists every problem found while compiling a mapping set
type MappingValidationError struct {
	Problems []string
}

func (e *MappingValidationError) Error() string {
	return fmt.Sprintf("mapping validation failed: %s", strings.Join(e.Problems, "; "))
}
