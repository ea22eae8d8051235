package model

import "time"

// Event kinds
const (
	EventCreated   = "created"
	EventPlacement = "placement"
	EventStatus    = "status"
	EventShipment  = "shipment"
	EventStale     = "stale_ignored"
)

// OrderStatusEvent is the append-only audit trail of an order.
type OrderStatusEvent struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	OrderID    int64     `gorm:"index;not null"`
	SubOrderID int64     `gorm:"index"`
	Kind       string    `gorm:"size:20;not null"`
	FromStatus string    `gorm:"size:20"`
	ToStatus   string    `gorm:"size:20"`
	Detail     string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

func (*OrderStatusEvent) TableName() string {
	return "order_status_events"
}

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Provider{},
		&CatalogProduct{},
		&Order{},
		&OrderItem{},
		&SubOrder{},
		&Shipment{},
		&OrderStatusEvent{},
	}
}
