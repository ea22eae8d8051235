// Package provider wraps each fulfillment provider's HTTP API behind one Client
// interface. Implementations translate the provider's wire format and status
// vocabulary; they never convert currencies or apply pricing.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=providermock/client_mock.go -package=providermock pod_fulfillment_v1/internal/provider Client

// Client is the capability set every provider integration exposes.
type Client interface {
	Slug() string
	FetchCatalog(ctx context.Context) ([]RawProduct, error)
	QuoteShipping(ctx context.Context, req RateRequest) ([]RateOption, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error)
	GetOrder(ctx context.Context, providerOrderID string) (*OrderState, error)
	SupportsIdempotentCreate() bool
}

// ==================== catalog ====================

// RawProduct is a provider product before normalization. Cost is in Currency.
type RawProduct struct {
	SKU          string
	Name         string
	Variant      string
	Category     string
	Cost         decimal.Decimal
	Currency     string
	Discontinued bool
}

// ==================== shipping ====================

type Address struct {
	Name        string
	Email       string
	Phone       string
	Line1       string
	Line2       string
	City        string
	State       string
	PostalCode  string
	CountryCode string
}

type Item struct {
	SKU       string
	Copies    int
	DesignURL string
}

type RateRequest struct {
	Destination Address
	Items       []Item
}

// RateOption is one shipping method as the provider priced it.
// Zero days mean the provider did not say.
type RateOption struct {
	MethodID string
	Label    string
	Cost     decimal.Decimal
	Currency string
	MinDays  int
	MaxDays  int
	Carrier  string
	Location string // fulfillment location / lab
}

// ==================== orders ====================

type OrderRequest struct {
	Reference      string // our order number
	IdempotencyKey string
	ShippingMethod string
	Recipient      Address
	Items          []Item
}

type OrderReceipt struct {
	ProviderOrderID string
	RawStatus       string
	Status          string // mapped lifecycle status
}

// OrderState is the provider's current view of a sub-order.
// Status is mapped to the lifecycle vocabulary; empty when the raw value is unknown.
type OrderState struct {
	ProviderOrderID string
	RawStatus       string
	Status          string
	Shipments       []ShipmentState
}

type ShipmentState struct {
	ProviderShipmentID string
	Carrier            string
	Service            string
	TrackingNumber     string
	TrackingURL        string
	Status             string
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
}
