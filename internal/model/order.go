package model

import (
	"time"

	"gorm.io/datatypes"

	"pod_fulfillment_v1/pkg/money"
)

// ==================== Order ====================

// Order is the unified fulfillment record. Prices and copies are frozen at
// creation; only the status tracker mutates it afterwards.
type Order struct {
	BaseModel
	OrderNumber string `gorm:"size:40;uniqueIndex;not null"`
	UserID      string `gorm:"size:64;index;not null"`

	Status string `gorm:"size:20;index;not null;default:partial"`

	// amounts in BRL cents
	ItemsCost    money.Cents
	ItemsSell    money.Cents
	ShippingCost money.Cents
	ShippingSell money.Cents
	GrandTotal   money.Cents
	TotalProfit  money.Cents
	Currency     string `gorm:"size:3;default:BRL"`

	Recipient datatypes.JSONType[Recipient]

	EstimatedFrom *time.Time
	EstimatedTo   *time.Time

	// set when some provider sub-orders were placed and others failed
	NeedsRemediation bool   `gorm:"index;default:false"`
	FailureReason    string `gorm:"type:text"`

	// associations
	Items     []OrderItem `gorm:"foreignKey:OrderID"`
	SubOrders []SubOrder  `gorm:"foreignKey:OrderID"`
}

func (*Order) TableName() string {
	return "orders"
}

// GetGrandTotal returns the grand total in BRL.
func (o *Order) GetGrandTotal() float64 {
	return o.GrandTotal.Float()
}

// GetTotalProfit returns the profit in BRL.
func (o *Order) GetTotalProfit() float64 {
	return o.TotalProfit.Float()
}

// IsTerminal reports whether the aggregate status can no longer change.
func (o *Order) IsTerminal() bool {
	return IsTerminal(o.Status)
}

// CanRefresh reports whether a status refresh could still change anything.
func (o *Order) CanRefresh() bool {
	for i := range o.SubOrders {
		if o.SubOrders[i].IsTrackable() {
			return true
		}
	}
	return false
}

// Recipient is the delivery address, stored as JSON on the order.
type Recipient struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

// ==================== OrderItem ====================

// OrderItem is one frozen line of an order.
type OrderItem struct {
	BaseModel
	OrderID      int64  `gorm:"index;not null"`
	SubOrderID   int64  `gorm:"index"`
	ProviderSlug string `gorm:"size:40;not null"`
	SKU          string `gorm:"size:120;not null"`
	Name         string `gorm:"size:255"`
	Variant      string `gorm:"size:120"`
	Copies       int    `gorm:"not null"`
	DesignURL    string `gorm:"size:1000"`

	SellingPrice money.Cents `gorm:"not null"` // per copy
	BaseCost     money.Cents `gorm:"not null"` // per copy
}

func (*OrderItem) TableName() string {
	return "order_items"
}

// ==================== SubOrder ====================

// SubOrder is the portion of an order placed with one provider.
type SubOrder struct {
	BaseModel
	OrderID      int64  `gorm:"index;not null"`
	ProviderSlug string `gorm:"size:40;index;not null"`

	QuoteID          string `gorm:"size:64"`
	ShippingMethodID string `gorm:"size:64"`
	ShippingLabel    string `gorm:"size:120"`

	// placement
	Placement       string `gorm:"size:20;index;not null;default:submitting"`
	IdempotencyKey  string `gorm:"size:64;uniqueIndex;not null"`
	ProviderOrderID string `gorm:"size:120;index"`
	Attempts        int
	Error           string `gorm:"type:text"`

	// fulfillment lifecycle
	Status         string `gorm:"size:20;index;not null;default:partial"`
	ProviderStatus string `gorm:"size:64"` // raw provider vocabulary

	ItemsCost    money.Cents
	ItemsSell    money.Cents
	ShippingCost money.Cents
	ShippingSell money.Cents
	Profit       money.Cents
	FxRate       string `gorm:"size:32"`

	MinDays int
	MaxDays int

	Shipments []Shipment `gorm:"foreignKey:SubOrderID"`
}

func (*SubOrder) TableName() string {
	return "sub_orders"
}

// IsPlaced reports whether the provider accepted the sub-order.
func (s *SubOrder) IsPlaced() bool {
	return s.Placement == PlacementPlaced && s.ProviderOrderID != ""
}

// IsTrackable reports whether the status tracker should poll it.
func (s *SubOrder) IsTrackable() bool {
	return s.IsPlaced() && !IsTerminal(s.Status)
}
