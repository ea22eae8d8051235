package provider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/pkg/net"
)

// generic serves the providers whose REST APIs share a plain JSON shape
// (CustomCat, SPOD, ShineOn). Paths come entirely from the registry profile.
type generic struct {
	*transport
}

func newGeneric(p *model.Provider, creds Credentials, d net.Dispatcher) Client {
	return &generic{transport: newTransport(p, creds, d)}
}

func (c *generic) Slug() string                   { return c.slug }
func (c *generic) SupportsIdempotentCreate() bool { return c.idempotent }

func (c *generic) FetchCatalog(ctx context.Context) ([]RawProduct, error) {
	var resp struct {
		Products []struct {
			SKU          string          `json:"sku"`
			Name         string          `json:"name"`
			Variant      string          `json:"variant"`
			Category     string          `json:"category"`
			Cost         decimal.Decimal `json:"cost"`
			Currency     string          `json:"currency"`
			Discontinued bool            `json:"discontinued"`
		} `json:"products"`
	}
	if err := c.read(ctx, "catalog", c.path(c.endpoints.Catalog), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]RawProduct, 0, len(resp.Products))
	for _, p := range resp.Products {
		out = append(out, RawProduct{
			SKU:          p.SKU,
			Name:         p.Name,
			Variant:      p.Variant,
			Category:     p.Category,
			Cost:         p.Cost,
			Currency:     p.Currency,
			Discontinued: p.Discontinued,
		})
	}
	return out, nil
}

type genericAddress struct {
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

type genericItem struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	DesignURL string `json:"design_url,omitempty"`
}

func toGenericAddress(a Address) genericAddress {
	return genericAddress(a)
}

func toGenericItems(items []Item, withDesign bool) []genericItem {
	out := make([]genericItem, 0, len(items))
	for _, it := range items {
		gi := genericItem{SKU: it.SKU, Quantity: it.Copies}
		if withDesign {
			gi.DesignURL = it.DesignURL
		}
		out = append(out, gi)
	}
	return out
}

func (c *generic) QuoteShipping(ctx context.Context, req RateRequest) ([]RateOption, error) {
	body := map[string]interface{}{
		"destination": toGenericAddress(req.Destination),
		"items":       toGenericItems(req.Items, false),
	}
	var resp struct {
		Rates []struct {
			ID       string          `json:"id"`
			Label    string          `json:"label"`
			Cost     decimal.Decimal `json:"cost"`
			Currency string          `json:"currency"`
			MinDays  int             `json:"min_days"`
			MaxDays  int             `json:"max_days"`
			Carrier  string          `json:"carrier"`
		} `json:"rates"`
	}
	if err := c.quote(ctx, "quote", c.path(c.endpoints.Shipping), nil, body, &resp); err != nil {
		return nil, err
	}

	out := make([]RateOption, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		label := r.Label
		if label == "" {
			label = r.ID
		}
		out = append(out, RateOption{
			MethodID: r.ID,
			Label:    label,
			Cost:     r.Cost,
			Currency: r.Currency,
			MinDays:  r.MinDays,
			MaxDays:  r.MaxDays,
			Carrier:  r.Carrier,
		})
	}
	return out, nil
}

var genericStatus = map[string]string{
	"new":           model.StatusPending,
	"received":      model.StatusPending,
	"pending":       model.StatusPending,
	"processing":    model.StatusProcessing,
	"on_hold":       model.StatusProcessing,
	"in_production": model.StatusInProduction,
	"printing":      model.StatusInProduction,
	"shipped":       model.StatusShipped,
	"delivered":     model.StatusDelivered,
	"cancelled":     model.StatusCancelled,
	"canceled":      model.StatusCancelled,
	"failed":        model.StatusFailed,
	"rejected":      model.StatusFailed,
}

type genericOrder struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Shipments []struct {
		ID             string `json:"id"`
		Carrier        string `json:"carrier"`
		Service        string `json:"service"`
		TrackingNumber string `json:"tracking_number"`
		TrackingURL    string `json:"tracking_url"`
		Status         string `json:"status"`
		ShippedAt      string `json:"shipped_at"`
		DeliveredAt    string `json:"delivered_at"`
	} `json:"shipments"`
}

func (o *genericOrder) state() *OrderState {
	st := &OrderState{
		ProviderOrderID: o.ID,
		RawStatus:       o.Status,
		Status:          mapStatus(genericStatus, strings.ReplaceAll(o.Status, " ", "_")),
	}
	for _, s := range o.Shipments {
		st.Shipments = append(st.Shipments, ShipmentState{
			ProviderShipmentID: s.ID,
			Carrier:            s.Carrier,
			Service:            s.Service,
			TrackingNumber:     s.TrackingNumber,
			TrackingURL:        s.TrackingURL,
			Status:             mapStatus(genericStatus, s.Status),
			ShippedAt:          parseTime(s.ShippedAt),
			DeliveredAt:        parseTime(s.DeliveredAt),
		})
	}
	return st
}

func (c *generic) CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	body := map[string]interface{}{
		"reference":       req.Reference,
		"shipping_method": req.ShippingMethod,
		"recipient":       toGenericAddress(req.Recipient),
		"items":           toGenericItems(req.Items, true),
	}
	var headers map[string]string
	if c.idempotent && req.IdempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": req.IdempotencyKey}
	}
	var resp genericOrder
	if err := c.create(ctx, "create_order", c.path(c.endpoints.Orders), nil, headers, body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, c.missingOrderID("")
	}
	st := resp.state()
	if st.Status == "" {
		st.Status = model.StatusPending
	}
	return &OrderReceipt{ProviderOrderID: st.ProviderOrderID, RawStatus: st.RawStatus, Status: st.Status}, nil
}

func (c *generic) GetOrder(ctx context.Context, providerOrderID string) (*OrderState, error) {
	var resp genericOrder
	if err := c.read(ctx, "get_order", c.path(c.endpoints.OrderStatus, "id", providerOrderID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.state(), nil
}
