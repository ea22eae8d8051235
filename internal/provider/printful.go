package provider

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/pkg/net"
)

// printful talks to the Printful API. Responses wrap payloads in
// {"code": ..., "result": ...}; SKUs are catalog variant ids.
type printful struct {
	*transport
}

func newPrintful(p *model.Provider, creds Credentials, d net.Dispatcher) Client {
	return &printful{transport: newTransport(p, creds, d)}
}

func (c *printful) Slug() string                   { return c.slug }
func (c *printful) SupportsIdempotentCreate() bool { return c.idempotent }

func (c *printful) FetchCatalog(ctx context.Context) ([]RawProduct, error) {
	var resp struct {
		Code   int `json:"code"`
		Result []struct {
			ID       int64  `json:"id"`
			Type     string `json:"type"`
			Title    string `json:"title"`
			Variants []struct {
				ID      int64           `json:"id"`
				Name    string          `json:"name"`
				Size    string          `json:"size"`
				Color   string          `json:"color"`
				Price   decimal.Decimal `json:"price"`
				InStock *bool           `json:"in_stock"`
			} `json:"variants"`
		} `json:"result"`
	}
	if err := c.read(ctx, "catalog", c.path(c.endpoints.Catalog), nil, &resp); err != nil {
		return nil, err
	}

	var out []RawProduct
	for _, p := range resp.Result {
		for _, v := range p.Variants {
			variant := v.Size
			if v.Color != "" {
				variant = v.Color + " / " + v.Size
			}
			out = append(out, RawProduct{
				SKU:          strconv.FormatInt(v.ID, 10),
				Name:         p.Title,
				Variant:      variant,
				Category:     p.Type,
				Cost:         v.Price,
				Currency:     "USD",
				Discontinued: v.InStock != nil && !*v.InStock,
			})
		}
	}
	return out, nil
}

type printfulItem struct {
	VariantID int64          `json:"variant_id"`
	Quantity  int            `json:"quantity"`
	Files     []printfulFile `json:"files,omitempty"`
}

type printfulFile struct {
	URL string `json:"url"`
}

func printfulItems(items []Item, withFiles bool) ([]printfulItem, error) {
	out := make([]printfulItem, 0, len(items))
	for _, it := range items {
		id, err := strconv.ParseInt(it.SKU, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("printful sku %q is not a variant id", it.SKU)
		}
		item := printfulItem{VariantID: id, Quantity: it.Copies}
		if withFiles && it.DesignURL != "" {
			item.Files = []printfulFile{{URL: it.DesignURL}}
		}
		out = append(out, item)
	}
	return out, nil
}

func printfulRecipient(a Address) map[string]string {
	return map[string]string{
		"name":         a.Name,
		"address1":     a.Line1,
		"address2":     a.Line2,
		"city":         a.City,
		"state_code":   a.State,
		"country_code": a.CountryCode,
		"zip":          a.PostalCode,
		"phone":        a.Phone,
		"email":        a.Email,
	}
}

func (c *printful) QuoteShipping(ctx context.Context, req RateRequest) ([]RateOption, error) {
	items, err := printfulItems(req.Items, false)
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"recipient": printfulRecipient(req.Destination),
		"items":     items,
	}
	var resp struct {
		Code   int `json:"code"`
		Result []struct {
			ID              string          `json:"id"`
			Name            string          `json:"name"`
			Rate            decimal.Decimal `json:"rate"`
			Currency        string          `json:"currency"`
			MinDeliveryDays int             `json:"minDeliveryDays"`
			MaxDeliveryDays int             `json:"maxDeliveryDays"`
		} `json:"result"`
	}
	if err := c.quote(ctx, "quote", c.path(c.endpoints.Shipping), nil, body, &resp); err != nil {
		return nil, err
	}

	out := make([]RateOption, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, RateOption{
			MethodID: r.ID,
			Label:    printfulLabel(r.ID, r.Name),
			Cost:     r.Rate,
			Currency: r.Currency,
			MinDays:  r.MinDeliveryDays,
			MaxDays:  r.MaxDeliveryDays,
		})
	}
	return out, nil
}

// printfulLabel turns STANDARD into Standard; names carry delivery estimates we do not want as labels.
func printfulLabel(id, name string) string {
	switch id {
	case "STANDARD":
		return "Standard"
	case "EXPRESS":
		return "Express"
	case "PRIORITY":
		return "Priority"
	}
	if name != "" {
		return name
	}
	return id
}

var printfulStatus = map[string]string{
	"draft":     model.StatusPending,
	"pending":   model.StatusPending,
	"failed":    model.StatusFailed,
	"canceled":  model.StatusCancelled,
	"cancelled": model.StatusCancelled,
	"onhold":    model.StatusProcessing,
	"inprocess": model.StatusInProduction,
	"partial":   model.StatusInProduction,
	"fulfilled": model.StatusShipped,
	"archived":  model.StatusShipped,
}

type printfulOrder struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Shipments []struct {
		ID             int64  `json:"id"`
		Carrier        string `json:"carrier"`
		Service        string `json:"service"`
		TrackingNumber string `json:"tracking_number"`
		TrackingURL    string `json:"tracking_url"`
		ShipDate       string `json:"ship_date"`
		Delivered      bool   `json:"delivered"`
	} `json:"shipments"`
}

func (o *printfulOrder) state() *OrderState {
	st := &OrderState{
		ProviderOrderID: strconv.FormatInt(o.ID, 10),
		RawStatus:       o.Status,
		Status:          mapStatus(printfulStatus, o.Status),
	}
	allDelivered := len(o.Shipments) > 0
	for _, s := range o.Shipments {
		sh := ShipmentState{
			ProviderShipmentID: strconv.FormatInt(s.ID, 10),
			Carrier:            s.Carrier,
			Service:            s.Service,
			TrackingNumber:     s.TrackingNumber,
			TrackingURL:        s.TrackingURL,
			Status:             model.StatusShipped,
		}
		sh.ShippedAt = parseTime(s.ShipDate)
		if s.Delivered {
			sh.Status = model.StatusDelivered
		} else {
			allDelivered = false
		}
		st.Shipments = append(st.Shipments, sh)
	}
	if st.Status == model.StatusShipped && allDelivered {
		st.Status = model.StatusDelivered
	}
	return st
}

func (c *printful) CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	items, err := printfulItems(req.Items, true)
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"external_id": req.Reference,
		"shipping":    req.ShippingMethod,
		"recipient":   printfulRecipient(req.Recipient),
		"items":       items,
	}
	var resp struct {
		Code   int           `json:"code"`
		Result printfulOrder `json:"result"`
	}
	// confirm=true sends the order straight to fulfillment instead of leaving a draft
	query := map[string]string{"confirm": "true"}
	if err := c.create(ctx, "create_order", c.path(c.endpoints.Orders), query, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Result.ID == 0 {
		return nil, c.missingOrderID("")
	}
	st := resp.Result.state()
	return &OrderReceipt{ProviderOrderID: st.ProviderOrderID, RawStatus: st.RawStatus, Status: st.Status}, nil
}

func (c *printful) GetOrder(ctx context.Context, providerOrderID string) (*OrderState, error) {
	var resp struct {
		Code   int           `json:"code"`
		Result printfulOrder `json:"result"`
	}
	if err := c.read(ctx, "get_order", c.path(c.endpoints.OrderStatus, "id", providerOrderID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Result.state(), nil
}
