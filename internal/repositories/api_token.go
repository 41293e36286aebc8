package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"gorm.io/gorm"
)

type apiTokenRepository struct {
	db *gorm.DB
}

// NewAPITokenRepository creates a new API token repository
func NewAPITokenRepository(db *gorm.DB) APITokenRepository {
	return &apiTokenRepository{db: db}
}

func (r *apiTokenRepository) Create(ctx context.Context, token *models.APIToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to create API token: %w", err)
	}
	return nil
}

func (r *apiTokenRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIToken, error) {
	var token models.APIToken
	if err := r.db.WithContext(ctx).First(&token, "prefix = ?", prefix).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get API token: %w", err)
	}
	return &token, nil
}

func (r *apiTokenRepository) TouchLastUsed(ctx context.Context, id string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&models.APIToken{}).
		Where("id = ?", id).
		Update("last_used_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to update API token: %w", err)
	}
	return nil
}
