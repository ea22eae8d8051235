package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pod_fulfillment_v1/internal/model"
)

// ==================== ProviderRepository ====================

// ProviderRepository stores provider configuration
type ProviderRepository interface {
	List(ctx context.Context) ([]model.Provider, error)
	GetBySlug(ctx context.Context, slug string) (*model.Provider, error)
	Upsert(ctx context.Context, p *model.Provider) error
	UpdateStatus(ctx context.Context, slug, status string) error
	Count(ctx context.Context) (int64, error)
}

type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository creates the provider repository
func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) List(ctx context.Context) ([]model.Provider, error) {
	var providers []model.Provider
	err := r.db.WithContext(ctx).Order("slug ASC").Find(&providers).Error
	return providers, err
}

func (r *providerRepository) GetBySlug(ctx context.Context, slug string) (*model.Provider, error) {
	var p model.Provider
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert inserts or replaces a provider keyed by slug.
func (r *providerRepository) Upsert(ctx context.Context, p *model.Provider) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns(providerUpsertColumns),
	}).Create(p).Error
}

var providerUpsertColumns = []string{
	"name", "specialization", "status",
	"api_base_url", "auth_method", "endpoints", "rate_limit_per_minute",
	"source_currency", "destinations", "delivery_windows", "shipping_methods",
	"default_min_days", "default_max_days", "capabilities",
	"suggested_margin_bps", "minimum_profit", "quality_score", "reliability_score",
	"updated_at",
}

func (r *providerRepository) UpdateStatus(ctx context.Context, slug, status string) error {
	res := r.db.WithContext(ctx).Model(&model.Provider{}).Where("slug = ?", slug).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *providerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Provider{}).Count(&n).Error
	return n, err
}
