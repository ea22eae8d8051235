package model

import "pod_fulfillment_v1/pkg/money"

// ShippingMethod is one entry of a provider's shipping profile.
// BasePrice is an indicative BRL price used when the live rate has no days.
type ShippingMethod struct {
	ID        string      `json:"id"`
	Label     string      `json:"label"`
	BasePrice money.Cents `json:"base_price"`
	MinDays   int         `json:"min_days"`
	MaxDays   int         `json:"max_days"`
}

// DeliveryWindow is the delivery-day range to one destination country.
type DeliveryWindow struct {
	Country string `json:"country"`
	MinDays int    `json:"min_days"`
	MaxDays int    `json:"max_days"`
}
