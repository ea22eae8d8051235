package model

import (
	"time"
)

// Shipment is one parcel of a sub-order as reported by the provider.
// Status uses the order lifecycle vocabulary (processing, shipped, delivered, cancelled).
type Shipment struct {
	BaseModel
	SubOrderID int64 `gorm:"index;not null"`

	ProviderShipmentID string `gorm:"size:120;index"`
	Carrier            string `gorm:"size:64"`
	Service            string `gorm:"size:64"`
	TrackingNumber     string `gorm:"size:120;index"`
	TrackingURL        string `gorm:"size:500"`

	Status      string `gorm:"size:20;index;not null;default:processing"`
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

func (*Shipment) TableName() string {
	return "shipments"
}

// HasTracking reports whether the carrier tracking is known.
func (s *Shipment) HasTracking() bool {
	return s.TrackingNumber != "" || s.TrackingURL != ""
}
