package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestLog records the outcome of one gateway request
type RequestLog struct {
	ID         string       `json:"id" gorm:"primaryKey;type:uuid"`
	RequestID  string       `json:"request_id" gorm:"not null;index" validate:"required"`
	CallerID   string       `json:"caller_id" gorm:"index"`
	Provider   string       `json:"provider" gorm:"index"`
	Endpoint   string       `json:"endpoint"`
	Model      string       `json:"model"`
	State      RequestState `json:"state" gorm:"not null" validate:"required"`
	ErrorCode  string       `json:"error_code,omitempty"`
	StatusCode int          `json:"status_code" gorm:"not null"`
	DurationMS int64        `json:"duration_ms"`
	Timestamp  time.Time    `json:"timestamp" gorm:"not null;index"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TableName returns the table name for RequestLog
func (RequestLog) TableName() string {
	return "request_logs"
}

// BeforeCreate assigns an id and timestamp when none is set
func (r *RequestLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	return nil
}

// IsError checks if the request resulted in an error
func (r *RequestLog) IsError() bool {
	return r.StatusCode >= 400 || r.ErrorCode != ""
}

// IsSuccess checks if the request was successful
func (r *RequestLog) IsSuccess() bool {
	return r.State == StateSucceeded
}
