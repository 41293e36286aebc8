package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"gorm.io/gorm"
)

// requestLogRepository implements RequestLogRepository
type requestLogRepository struct {
	db *gorm.DB
}

// NewRequestLogRepository creates a new request log repository
func NewRequestLogRepository(db *gorm.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

// Create creates a new request log
func (r *requestLogRepository) Create(ctx context.Context, log *models.RequestLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create request log: %w", err)
	}
	return nil
}

// GetByRequestID retrieves the log written for a gateway request
func (r *requestLogRepository) GetByRequestID(ctx context.Context, requestID string) (*models.RequestLog, error) {
	var log models.RequestLog
	if err := r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get request log: %w", err)
	}
	return &log, nil
}

// GetRecent retrieves request logs newest first with pagination. An empty callerID lists every caller.
func (r *requestLogRepository) GetRecent(ctx context.Context, callerID string, limit, offset int) ([]*models.RequestLog, error) {
	query := r.db.WithContext(ctx)
	if callerID != "" {
		query = query.Where("caller_id = ?", callerID)
	}

	var logs []*models.RequestLog
	err := query.
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}
	return logs, nil
}
