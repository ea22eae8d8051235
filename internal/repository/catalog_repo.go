package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pod_fulfillment_v1/internal/model"
)

// ==================== filters ====================

// CatalogFilter catalog browse filter
type CatalogFilter struct {
	ProviderSlugs       []string
	Category            string
	Keyword             string
	IncludeDiscontinued bool
	Page                int
	PageSize            int
}

// ==================== CatalogRepository ====================

// CatalogRepository stores normalized catalog snapshots
type CatalogRepository interface {
	UpsertBatch(ctx context.Context, products []model.CatalogProduct) error
	MarkDiscontinued(ctx context.Context, providerSlug string, syncedBefore time.Time) (int64, error)
	GetBySKU(ctx context.Context, providerSlug, sku string) (*model.CatalogProduct, error)
	List(ctx context.Context, filter CatalogFilter) ([]model.CatalogProduct, int64, error)
	CountByProvider(ctx context.Context) (map[string]int64, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates the catalog repository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

var catalogUpsertColumns = []string{
	"name", "variant", "category", "raw_category", "needs_review",
	"source_currency", "source_cost", "fx_rate",
	"base_cost", "suggested_price", "discontinued", "synced_at", "updated_at",
}

// UpsertBatch writes a sync result keyed by (provider_slug, sku).
func (r *catalogRepository) UpsertBatch(ctx context.Context, products []model.CatalogProduct) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_slug"}, {Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(catalogUpsertColumns),
	}).CreateInBatches(&products, 200).Error
}

// MarkDiscontinued flags every product of a provider not touched by the sync that started at syncedBefore.
func (r *catalogRepository) MarkDiscontinued(ctx context.Context, providerSlug string, syncedBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.CatalogProduct{}).
		Where("provider_slug = ? AND discontinued = ? AND synced_at < ?", providerSlug, false, syncedBefore).
		Update("discontinued", true)
	return res.RowsAffected, res.Error
}

func (r *catalogRepository) GetBySKU(ctx context.Context, providerSlug, sku string) (*model.CatalogProduct, error) {
	var p model.CatalogProduct
	err := r.db.WithContext(ctx).
		Where("provider_slug = ? AND sku = ?", providerSlug, sku).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepository) List(ctx context.Context, filter CatalogFilter) ([]model.CatalogProduct, int64, error) {
	var products []model.CatalogProduct
	var total int64

	db := r.db.WithContext(ctx).Model(&model.CatalogProduct{})

	// filters
	if len(filter.ProviderSlugs) > 0 {
		db = db.Where("provider_slug IN ?", filter.ProviderSlugs)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if !filter.IncludeDiscontinued {
		db = db.Where("discontinued = ?", false)
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(variant) LIKE ?", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// pagination
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.
		Order("provider_slug ASC, name ASC, sku ASC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

func (r *catalogRepository) CountByProvider(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ProviderSlug string
		Count        int64
	}
	err := r.db.WithContext(ctx).Model(&model.CatalogProduct{}).
		Where("discontinued = ?", false).
		Select("provider_slug, COUNT(*) as count").
		Group("provider_slug").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ProviderSlug] = row.Count
	}
	return out, nil
}
