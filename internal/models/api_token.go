package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIToken is a caller credential. Only the bcrypt hash of the secret half is stored.
type APIToken struct {
	ID         string         `json:"id" gorm:"primaryKey;type:uuid"`
	Name       string         `json:"name" gorm:"not null" validate:"required"`
	Prefix     string         `json:"prefix" gorm:"uniqueIndex;not null" validate:"required"`
	SecretHash string         `json:"-" gorm:"not null"`
	Subject    string         `json:"subject" gorm:"not null;index" validate:"required"`
	IsActive   bool           `json:"is_active" gorm:"not null"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	LastUsedAt *time.Time     `json:"last_used_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the table name for APIToken
func (APIToken) TableName() string {
	return "api_tokens"
}

// BeforeCreate assigns an id when none is set
func (t *APIToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the token has passed its expiry
func (t *APIToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// AuthMethod records how a caller proved its identity
type AuthMethod string

const (
	AuthMethodAPIToken AuthMethod = "api_token"
	AuthMethodJWT      AuthMethod = "jwt"
)

// Caller is a verified caller identity
type Caller struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Method AuthMethod `json:"method"`
}
