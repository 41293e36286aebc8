package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider is a third-party AI vendor
type Provider struct {
	ID        string         `json:"id" gorm:"primaryKey;type:uuid"`
	Slug      string         `json:"slug" gorm:"uniqueIndex;not null" validate:"required"`
	Name      string         `json:"name" gorm:"not null" validate:"required"`
	IsActive  bool           `json:"is_active" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the table name for Provider
func (Provider) TableName() string {
	return "providers"
}

// BeforeCreate assigns an id when none is set
func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// AIModel is a model offered by a provider
type AIModel struct {
	ID         string         `json:"id" gorm:"primaryKey;type:uuid"`
	ProviderID string         `json:"provider_id" gorm:"type:uuid;not null;uniqueIndex:idx_model_provider_slug" validate:"required"`
	Slug       string         `json:"slug" gorm:"not null;uniqueIndex:idx_model_provider_slug" validate:"required"`
	Name       string         `json:"name"`
	IsDefault  bool           `json:"is_default" gorm:"not null"`
	IsActive   bool           `json:"is_active" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Provider *Provider `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}

// TableName returns the table name for AIModel
func (AIModel) TableName() string {
	return "ai_models"
}

// BeforeCreate assigns an id when none is set
func (m *AIModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Endpoint is one callable provider function with its provider-side schema
type Endpoint struct {
	ID          string          `json:"id" gorm:"primaryKey;type:uuid"`
	ProviderID  string          `json:"provider_id" gorm:"type:uuid;not null;uniqueIndex:idx_endpoint_provider_name" validate:"required"`
	Name        string          `json:"name" gorm:"not null;uniqueIndex:idx_endpoint_provider_name" validate:"required"`
	DisplayName string          `json:"display_name"`
	URL         string          `json:"url"`
	Schema      ParameterSchema `json:"schema" gorm:"type:jsonb"`
	IsDefault   bool            `json:"is_default" gorm:"not null"`
	IsActive    bool            `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName returns the table name for Endpoint
func (Endpoint) TableName() string {
	return "endpoints"
}

// BeforeCreate assigns an id when none is set
func (e *Endpoint) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// ParameterSet is the canonical ("default parameters") schema callers speak
type ParameterSet struct {
	ID        string          `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string          `json:"name" gorm:"uniqueIndex;not null" validate:"required"`
	Schema    ParameterSchema `json:"schema" gorm:"type:jsonb"`
	Defaults  JSONMap         `json:"defaults" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName returns the table name for ParameterSet
func (ParameterSet) TableName() string {
	return "parameter_sets"
}

// BeforeCreate assigns an id when none is set
func (p *ParameterSet) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
