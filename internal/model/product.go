package model

import (
	"time"

	"pod_fulfillment_v1/pkg/money"
)

// CatalogProduct is the canonical product within one provider's catalog.
// Costs are BRL cents converted at sync time; the source amount and rate are
// kept next to them for audit.
type CatalogProduct struct {
	BaseModel

	ProviderSlug string `gorm:"size:40;not null;uniqueIndex:idx_catalog_provider_sku,priority:1" json:"provider_slug"`
	SKU          string `gorm:"size:120;not null;uniqueIndex:idx_catalog_provider_sku,priority:2" json:"sku"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Variant     string `gorm:"size:120" json:"variant"` // size / variant descriptor
	Category    string `gorm:"size:32;index;not null;default:general" json:"category"`
	RawCategory string `gorm:"size:120" json:"raw_category"`
	NeedsReview bool   `gorm:"default:false" json:"needs_review"` // category fell back to general

	// FX snapshot
	SourceCurrency string `gorm:"size:3;not null" json:"source_currency"`
	SourceCost     string `gorm:"size:32;not null" json:"source_cost"` // decimal string as received
	FxRate         string `gorm:"size:32;not null" json:"fx_rate"`

	BaseCost       money.Cents `gorm:"not null" json:"base_cost"`
	SuggestedPrice money.Cents `gorm:"not null" json:"suggested_price"`

	Discontinued bool      `gorm:"index;default:false" json:"discontinued"`
	SyncedAt     time.Time `json:"synced_at"`
}

func (*CatalogProduct) TableName() string {
	return "catalog_products"
}

// GetBaseCost returns the base cost in BRL.
func (p *CatalogProduct) GetBaseCost() float64 {
	return p.BaseCost.Float()
}

// GetSuggestedPrice returns the suggested price in BRL.
func (p *CatalogProduct) GetSuggestedPrice() float64 {
	return p.SuggestedPrice.Float()
}
