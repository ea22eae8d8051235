package model

import (
	"strings"

	"gorm.io/datatypes"

	"pod_fulfillment_v1/pkg/money"
)

// ==================== provider constants ====================

// Provider integration lifecycle
const (
	ProviderInactive   = "inactive"
	ProviderTesting    = "testing"
	ProviderActive     = "active"
	ProviderComingSoon = "coming_soon"
)

// Specialization / canonical product category. Unmapped provider categories fall back to general.
const (
	CategoryGeneral     = "general"
	CategoryApparel     = "apparel"
	CategoryJewelry     = "jewelry"
	CategoryWallArt     = "wall-art"
	CategoryHomeDecor   = "home-decor"
	CategoryAccessories = "accessories"
	CategoryStationery  = "stationery"
)

var categories = []string{
	CategoryGeneral, CategoryApparel, CategoryJewelry, CategoryWallArt,
	CategoryHomeDecor, CategoryAccessories, CategoryStationery,
}

// Categories returns the canonical category enumeration.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

func IsCategory(s string) bool {
	for _, c := range categories {
		if c == s {
			return true
		}
	}
	return false
}

// ==================== Provider ====================

// Provider is a fulfillment supplier. Seeded by the admin CLI, read-only at runtime.
type Provider struct {
	BaseModel

	Slug           string `gorm:"size:40;uniqueIndex;not null" json:"slug"`
	Name           string `gorm:"size:120;not null" json:"name"`
	Specialization string `gorm:"size:32;index;not null;default:general" json:"specialization"`
	Status         string `gorm:"size:20;index;not null;default:inactive" json:"status"`

	// API connection profile
	APIBaseURL         string                        `gorm:"size:255" json:"api_base_url"`
	AuthMethod         string                        `gorm:"size:20" json:"auth_method"`
	Endpoints          datatypes.JSONType[Endpoints] `json:"endpoints"`
	RateLimitPerMinute int                           `gorm:"default:60" json:"rate_limit_per_minute"`

	// shipping profile
	SourceCurrency  string                              `gorm:"size:3;not null;default:USD" json:"source_currency"`
	Destinations    datatypes.JSONSlice[string]         `json:"destinations"` // ISO country codes, "*" for worldwide
	DeliveryWindows datatypes.JSONSlice[DeliveryWindow] `json:"delivery_windows"`
	ShippingMethods datatypes.JSONSlice[ShippingMethod] `json:"shipping_methods"`
	DefaultMinDays  int                                 `json:"default_min_days"`
	DefaultMaxDays  int                                 `json:"default_max_days"`

	Capabilities datatypes.JSONType[Capabilities] `json:"capabilities"`

	// pricing policy: basis points, 4500 = 45%
	SuggestedMarginBps int         `gorm:"not null;default:0" json:"suggested_margin_bps"`
	MinimumProfit      money.Cents `gorm:"not null;default:0" json:"minimum_profit"`

	QualityScore     float64 `json:"quality_score"`
	ReliabilityScore float64 `json:"reliability_score"`
}

func (*Provider) TableName() string {
	return "providers"
}

// Endpoints are paths relative to the API base URL (absolute URLs are allowed).
// {id} is substituted with the provider order id, {shop_id} with the configured shop.
type Endpoints struct {
	Catalog     string `json:"catalog"`
	Shipping    string `json:"shipping"`
	Orders      string `json:"orders"`
	OrderStatus string `json:"order_status"`
	AuthHeader  string `json:"auth_header,omitempty"`
}

type Capabilities struct {
	CustomBranding   bool `json:"custom_branding"`
	BulkOrders       bool `json:"bulk_orders"`
	Webhooks         bool `json:"webhooks"`
	IdempotentCreate bool `json:"idempotent_create"` // order create accepts a client idempotency key
	GraphQL          bool `json:"graphql,omitempty"`
}

// IsActive reports whether the provider is listed to end users.
func (p *Provider) IsActive() bool {
	return p.Status == ProviderActive
}

// IsRetrievable reports whether GetProvider may return it (everything except inactive).
func (p *Provider) IsRetrievable() bool {
	return p.Status != "" && p.Status != ProviderInactive
}

// ServesDestination checks the destination country against the profile.
func (p *Provider) ServesDestination(country string) bool {
	country = strings.ToUpper(strings.TrimSpace(country))
	for _, d := range p.Destinations {
		if d == "*" || strings.EqualFold(d, country) {
			return true
		}
	}
	return false
}

// DeliveryDays returns the delivery range for a shipping method to a country:
// the profile method, then the destination window, then the provider default.
// methodKeys are tried in order against method ids and labels.
func (p *Provider) DeliveryDays(country string, methodKeys ...string) (int, int) {
	for _, key := range methodKeys {
		if key == "" {
			continue
		}
		if m, ok := p.Method(key); ok && m.MaxDays > 0 {
			return m.MinDays, m.MaxDays
		}
	}
	if w, ok := p.Window(country); ok {
		return w.MinDays, w.MaxDays
	}
	return p.DefaultMinDays, p.DefaultMaxDays
}

// Window returns the delivery window configured for a country, if any.
func (p *Provider) Window(country string) (DeliveryWindow, bool) {
	for _, w := range p.DeliveryWindows {
		if strings.EqualFold(w.Country, country) {
			return w, true
		}
	}
	return DeliveryWindow{}, false
}

// Method looks up a profile shipping method by id or label, case-insensitive.
func (p *Provider) Method(idOrLabel string) (ShippingMethod, bool) {
	for _, m := range p.ShippingMethods {
		if strings.EqualFold(m.ID, idOrLabel) || strings.EqualFold(m.Label, idOrLabel) {
			return m, true
		}
	}
	return ShippingMethod{}, false
}

// SupportsIdempotentCreate reports whether order creation is safe to retry.
func (p *Provider) SupportsIdempotentCreate() bool {
	return p.Capabilities.Data().IdempotentCreate
}

// GetMinimumProfit returns the minimum profit in BRL.
func (p *Provider) GetMinimumProfit() float64 {
	return p.MinimumProfit.Float()
}
