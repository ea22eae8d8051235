package dto

import (
	"time"

	"pod_fulfillment_v1/internal/model"
	apperrors "pod_fulfillment_v1/pkg/errors"
)

// ==================== recipient ====================

type RecipientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

func (r RecipientRequest) ToModel() model.Recipient {
	return model.Recipient{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Line1:       r.Line1,
		Line2:       r.Line2,
		City:        r.City,
		State:       r.State,
		PostalCode:  r.PostalCode,
		CountryCode: r.CountryCode,
	}
}

// ==================== order creation ====================

// CreateOrderRequest confirms the session cart with one quote per provider group.
type CreateOrderRequest struct {
	QuoteIDs  []string         `json:"quote_ids" binding:"required,min=1"`
	Recipient RecipientRequest `json:"recipient"`
}

// PartialOrderResponse is returned with 207 when only some providers accepted.
type PartialOrderResponse struct {
	Order    *OrderDetailResponse        `json:"order"`
	Outcomes []apperrors.SubOrderOutcome `json:"outcomes"`
}

// ==================== order list ====================

type ListOrdersRequest struct {
	Status           string `form:"status"`
	NeedsRemediation *bool  `form:"needs_remediation"`
	Page             int    `form:"page,default=1"`
	PageSize         int    `form:"page_size,default=20"`
}

type ListOrdersResponse struct {
	Total int64           `json:"total"`
	List  []OrderListItem `json:"list"`
}

type OrderListItem struct {
	ID               int64      `json:"id"`
	OrderNumber      string     `json:"order_number"`
	Status           string     `json:"status"`
	NeedsRemediation bool       `json:"needs_remediation"`
	Providers        []string   `json:"providers"`
	ItemCount        int        `json:"item_count"`
	TotalAmount      float64    `json:"total_amount"`
	Currency         string     `json:"currency"`
	EstimatedTo      *time.Time `json:"estimated_to,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ==================== order detail ====================

type OrderDetailResponse struct {
	Order     *OrderVO        `json:"order"`
	Items     []OrderItemVO   `json:"items"`
	SubOrders []SubOrderVO    `json:"sub_orders"`
	Recipient model.Recipient `json:"recipient"`
	Events    []OrderEventVO  `json:"events,omitempty"`
}

type OrderVO struct {
	ID               int64      `json:"id"`
	OrderNumber      string     `json:"order_number"`
	Status           string     `json:"status"`
	NeedsRemediation bool       `json:"needs_remediation"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	ItemsAmount      float64    `json:"items_amount"`
	ShippingAmount   float64    `json:"shipping_amount"`
	GrandTotalAmount float64    `json:"grand_total_amount"`
	ProfitAmount     float64    `json:"profit_amount"`
	Currency         string     `json:"currency"`
	EstimatedFrom    *time.Time `json:"estimated_from,omitempty"`
	EstimatedTo      *time.Time `json:"estimated_to,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type OrderItemVO struct {
	Provider  string  `json:"provider"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Variant   string  `json:"variant,omitempty"`
	Copies    int     `json:"copies"`
	DesignURL string  `json:"design_url"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type SubOrderVO struct {
	ID              int64        `json:"id"`
	Provider        string       `json:"provider"`
	Placement       string       `json:"placement"`
	ProviderOrderID string       `json:"provider_order_id,omitempty"`
	Status          string       `json:"status"`
	ProviderStatus  string       `json:"provider_status,omitempty"`
	ShippingMethod  string       `json:"shipping_method"`
	ShippingAmount  float64      `json:"shipping_amount"`
	MinDays         int          `json:"min_days"`
	MaxDays         int          `json:"max_days"`
	Error           string       `json:"error,omitempty"`
	Shipments       []ShipmentVO `json:"shipments"`
}

type ShipmentVO struct {
	Carrier        string     `json:"carrier"`
	Service        string     `json:"service,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	TrackingURL    string     `json:"tracking_url,omitempty"`
	Status         string     `json:"status"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

type OrderEventVO struct {
	Kind       string    `json:"kind"`
	SubOrderID int64     `json:"sub_order_id,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ==================== builders ====================

// NewOrderDetail renders an order with its items, sub-orders and shipments.
func NewOrderDetail(o *model.Order, events []model.OrderStatusEvent) *OrderDetailResponse {
	resp := &OrderDetailResponse{
		Order: &OrderVO{
			ID:               o.ID,
			OrderNumber:      o.OrderNumber,
			Status:           o.Status,
			NeedsRemediation: o.NeedsRemediation,
			FailureReason:    o.FailureReason,
			ItemsAmount:      o.ItemsSell.Float(),
			ShippingAmount:   o.ShippingSell.Float(),
			GrandTotalAmount: o.GetGrandTotal(),
			ProfitAmount:     o.GetTotalProfit(),
			Currency:         o.Currency,
			EstimatedFrom:    o.EstimatedFrom,
			EstimatedTo:      o.EstimatedTo,
			CreatedAt:        o.CreatedAt,
			UpdatedAt:        o.UpdatedAt,
		},
		Items:     make([]OrderItemVO, 0, len(o.Items)),
		SubOrders: make([]SubOrderVO, 0, len(o.SubOrders)),
		Recipient: o.Recipient.Data(),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemVO{
			Provider:  it.ProviderSlug,
			SKU:       it.SKU,
			Name:      it.Name,
			Variant:   it.Variant,
			Copies:    it.Copies,
			DesignURL: it.DesignURL,
			UnitPrice: it.SellingPrice.Float(),
			LineTotal: it.SellingPrice.Times(it.Copies).Float(),
		})
	}
	for _, s := range o.SubOrders {
		vo := SubOrderVO{
			ID:              s.ID,
			Provider:        s.ProviderSlug,
			Placement:       s.Placement,
			ProviderOrderID: s.ProviderOrderID,
			Status:          s.Status,
			ProviderStatus:  s.ProviderStatus,
			ShippingMethod:  s.ShippingLabel,
			ShippingAmount:  s.ShippingSell.Float(),
			MinDays:         s.MinDays,
			MaxDays:         s.MaxDays,
			Error:           s.Error,
			Shipments:       make([]ShipmentVO, 0, len(s.Shipments)),
		}
		for _, sh := range s.Shipments {
			vo.Shipments = append(vo.Shipments, ShipmentVO{
				Carrier:        sh.Carrier,
				Service:        sh.Service,
				TrackingNumber: sh.TrackingNumber,
				TrackingURL:    sh.TrackingURL,
				Status:         sh.Status,
				ShippedAt:      sh.ShippedAt,
				DeliveredAt:    sh.DeliveredAt,
			})
		}
		resp.SubOrders = append(resp.SubOrders, vo)
	}
	for _, e := range events {
		resp.Events = append(resp.Events, OrderEventVO{
			Kind:       e.Kind,
			SubOrderID: e.SubOrderID,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Detail:     e.Detail,
			CreatedAt:  e.CreatedAt,
		})
	}
	return resp
}

func NewOrderListItem(o *model.Order) OrderListItem {
	var providers []string
	for _, s := range o.SubOrders {
		providers = append(providers, s.ProviderSlug)
	}
	copies := 0
	for _, it := range o.Items {
		copies += it.Copies
	}
	return OrderListItem{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.Status,
		NeedsRemediation: o.NeedsRemediation,
		Providers:        providers,
		ItemCount:        copies,
		TotalAmount:      o.GetGrandTotal(),
		Currency:         o.Currency,
		EstimatedTo:      o.EstimatedTo,
		CreatedAt:        o.CreatedAt,
	}
}
