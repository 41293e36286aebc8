package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"gorm.io/gorm"
)

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new gorm-backed catalog repository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetProviderBySlug(ctx context.Context, slug string) (*models.Provider, error) {
	var provider models.Provider
	err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}

func (r *catalogRepository) GetModel(ctx context.Context, providerID, slug string) (*models.AIModel, error) {
	var model models.AIModel
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND slug = ? AND is_active = ?", providerID, slug, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return &model, nil
}

// GetDefaultModel returns the first active default model together with its provider.
// An empty providerID searches every provider.
func (r *catalogRepository) GetDefaultModel(ctx context.Context, providerID string) (*models.AIModel, error) {
	query := r.db.WithContext(ctx).
		Preload("Provider").
		Where("is_default = ? AND is_active = ?", true, true)
	if providerID != "" {
		query = query.Where("provider_id = ?", providerID)
	}

	var model models.AIModel
	if err := query.Order("created_at ASC, id ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get default model: %w", err)
	}
	return &model, nil
}

func (r *catalogRepository) GetEndpoint(ctx context.Context, providerID, name string) (*models.Endpoint, error) {
	var endpoint models.Endpoint
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND name = ? AND is_active = ?", providerID, name, true).
		First(&endpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get endpoint: %w", err)
	}
	return &endpoint, nil
}

func (r *catalogRepository) GetDefaultEndpoint(ctx context.Context, providerID string) (*models.Endpoint, error) {
	var endpoint models.Endpoint
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND is_default = ? AND is_active = ?", providerID, true, true).
		Order("created_at ASC, id ASC").
		First(&endpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get default endpoint: %w", err)
	}
	return &endpoint, nil
}

// GetActiveMappingSet returns the first active mapping set of an endpoint, oldest first,
// with its records in position order. Uniqueness of the active set is not enforced here.
func (r *catalogRepository) GetActiveMappingSet(ctx context.Context, endpointID string) (*models.MappingSet, error) {
	var set models.MappingSet
	err := r.db.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Where("endpoint_id = ? AND is_active = ?", endpointID, true).
		Order("created_at ASC, id ASC").
		First(&set).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mapping set: %w", err)
	}
	return &set, nil
}

func (r *catalogRepository) GetParameterSet(ctx context.Context, id string) (*models.ParameterSet, error) {
	var set models.ParameterSet
	if err := r.db.WithContext(ctx).First(&set, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get parameter set: %w", err)
	}
	return &set, nil
}
