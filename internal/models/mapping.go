package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FieldType names the bucket a mapping record writes into
type FieldType string

const (
	FieldTypeParameter FieldType = "parameter"
	FieldTypeHeader    FieldType = "header"
	FieldTypeBody      FieldType = "body"
	FieldTypeQuery     FieldType = "query"
)

// Valid reports whether t is a known bucket
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeParameter, FieldTypeHeader, FieldTypeBody, FieldTypeQuery:
		return true
	}
	return false
}

// MappingRecord connects a provider-side field (FromField) to a canonical-side field (ToField).
// When two records of one set share a FromField they are applied in order and the last one wins.
type MappingRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	MappingSetID   string    `json:"mapping_set_id" gorm:"type:uuid;not null;index"`
	Position       int       `json:"position" gorm:"not null;default:0"`
	FromField      string    `json:"fromField" gorm:"not null" validate:"required"`
	ToField        string    `json:"toField" gorm:"not null" validate:"required"`
	FieldType      FieldType `json:"fieldType" gorm:"not null" validate:"required,oneof=parameter header body query"`
	Transformation string    `json:"transformation,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the table name for MappingRecord
func (MappingRecord) TableName() string {
	return "mapping_records"
}

// BeforeCreate assigns an id when none is set
func (r *MappingRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// MappingSet is the adapter between one provider endpoint and one canonical parameter set
type MappingSet struct {
	ID             string          `json:"id" gorm:"primaryKey;type:uuid"`
	Name           string          `json:"name" gorm:"not null" validate:"required"`
	EndpointID     string          `json:"endpoint_id" gorm:"type:uuid;not null;index" validate:"required"`
	ParameterSetID string          `json:"parameter_set_id" gorm:"type:uuid;not null;index" validate:"required"`
	IsActive       bool            `json:"is_active" gorm:"not null"`
	Records        []MappingRecord `json:"records" gorm:"foreignKey:MappingSetID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName returns the table name for MappingSet
func (MappingSet) TableName() string {
	return "mapping_sets"
}

// BeforeCreate assigns an id when none is set
func (m *MappingSet) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// TransformedRequest is the provider-shaped request being assembled for dispatch
type TransformedRequest struct {
	Body       map[string]interface{} `json:"body"`
	Headers    map[string]string      `json:"headers"`
	Parameters map[string]interface{} `json:"parameters"`
	Query      map[string]interface{} `json:"query"`
}

// NewTransformedRequest returns a request with four empty buckets
func NewTransformedRequest() TransformedRequest {
	return TransformedRequest{
		Body:       map[string]interface{}{},
		Headers:    map[string]string{},
		Parameters: map[string]interface{}{},
		Query:      map[string]interface{}{},
	}
}

// RequestState is a step of the per-request gateway state machine
type RequestState string

const (
	StateAuthenticated           RequestState = "AUTHENTICATED"
	StateCatalogResolved         RequestState = "CATALOG_RESOLVED"
	StateMapped                  RequestState = "MAPPED"
	StateRepaired                RequestState = "REPAIRED"
	StateAuthenticatedToProvider RequestState = "AUTHENTICATED_TO_PROVIDER"
	StateDispatched              RequestState = "DISPATCHED"
	StateSucceeded               RequestState = "SUCCEEDED"
	StateProviderError           RequestState = "PROVIDER_ERROR"
	StateConfigurationError      RequestState = "CONFIGURATION_ERROR"
	StateNotFound                RequestState = "NOT_FOUND"
	StateBadRequest              RequestState = "BAD_REQUEST"
)

// IsTerminal reports whether no further transition can follow s
func (s RequestState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateProviderError, StateConfigurationError, StateNotFound, StateBadRequest:
		return true
	}
	return false
}
