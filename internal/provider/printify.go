package provider

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/pkg/net"
)

// printify talks to the Printify API v1. Every path is scoped to a shop;
// amounts are integer cents in USD.
type printify struct {
	*transport
}

func newPrintify(p *model.Provider, creds Credentials, d net.Dispatcher) Client {
	return &printify{transport: newTransport(p, creds, d)}
}

func (c *printify) Slug() string                   { return c.slug }
func (c *printify) SupportsIdempotentCreate() bool { return c.idempotent }

func centsToDecimal(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func (c *printify) FetchCatalog(ctx context.Context) ([]RawProduct, error) {
	var resp struct {
		Data []struct {
			ID       string   `json:"id"`
			Title    string   `json:"title"`
			Tags     []string `json:"tags"`
			Variants []struct {
				ID          int64  `json:"id"`
				SKU         string `json:"sku"`
				Cost        int64  `json:"cost"`
				Title       string `json:"title"`
				IsEnabled   bool   `json:"is_enabled"`
				IsAvailable bool   `json:"is_available"`
			} `json:"variants"`
		} `json:"data"`
	}
	if err := c.read(ctx, "catalog", c.path(c.endpoints.Catalog), map[string]string{"limit": "100"}, &resp); err != nil {
		return nil, err
	}

	var out []RawProduct
	for _, p := range resp.Data {
		category := ""
		if len(p.Tags) > 0 {
			category = p.Tags[0]
		}
		for _, v := range p.Variants {
			if !v.IsEnabled || v.SKU == "" {
				continue
			}
			out = append(out, RawProduct{
				SKU:          v.SKU,
				Name:         p.Title,
				Variant:      v.Title,
				Category:     category,
				Cost:         centsToDecimal(v.Cost),
				Currency:     "USD",
				Discontinued: !v.IsAvailable,
			})
		}
	}
	return out, nil
}

func printifyAddress(a Address) map[string]string {
	first, last := splitName(a.Name)
	return map[string]string{
		"first_name": first,
		"last_name":  last,
		"email":      a.Email,
		"phone":      a.Phone,
		"country":    a.CountryCode,
		"region":     a.State,
		"address1":   a.Line1,
		"address2":   a.Line2,
		"city":       a.City,
		"zip":        a.PostalCode,
	}
}

// printify shipping levels; the rates endpoint answers with one key per level.
var printifyMethods = map[string]int{
	"standard": 1,
	"priority": 2,
	"express":  3,
	"economy":  4,
}

func (c *printify) QuoteShipping(ctx context.Context, req RateRequest) ([]RateOption, error) {
	lines := make([]map[string]interface{}, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, map[string]interface{}{"sku": it.SKU, "quantity": it.Copies})
	}
	body := map[string]interface{}{
		"line_items": lines,
		"address_to": printifyAddress(req.Destination),
	}

	var resp map[string]int64
	if err := c.quote(ctx, "quote", c.path(c.endpoints.Shipping), nil, body, &resp); err != nil {
		return nil, err
	}

	// fixed order so the default pick does not depend on map iteration
	keys := make([]string, 0, len(resp))
	for k := range resp {
		if _, ok := printifyMethods[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return printifyMethods[keys[i]] < printifyMethods[keys[j]] })

	out := make([]RateOption, 0, len(keys))
	for _, k := range keys {
		out = append(out, RateOption{
			MethodID: k,
			Label:    strings.ToUpper(k[:1]) + k[1:],
			Cost:     centsToDecimal(resp[k]),
			Currency: "USD",
		})
	}
	return out, nil
}

func (c *printify) CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	method, ok := printifyMethods[strings.ToLower(req.ShippingMethod)]
	if !ok {
		method = printifyMethods["standard"]
	}

	lines := make([]map[string]interface{}, 0, len(req.Items))
	for _, it := range req.Items {
		line := map[string]interface{}{"sku": it.SKU, "quantity": it.Copies}
		if it.DesignURL != "" {
			line["print_areas"] = map[string]string{"front": it.DesignURL}
		}
		lines = append(lines, line)
	}

	body := map[string]interface{}{
		"external_id":                req.Reference,
		"label":                      req.Reference,
		"line_items":                 lines,
		"shipping_method":            method,
		"send_shipping_notification": false,
		"address_to":                 printifyAddress(req.Recipient),
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.create(ctx, "create_order", c.path(c.endpoints.Orders), nil, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, c.missingOrderID("")
	}
	return &OrderReceipt{ProviderOrderID: resp.ID, RawStatus: "pending", Status: model.StatusPending}, nil
}

var printifyStatus = map[string]string{
	"pending":               model.StatusPending,
	"payment-not-received":  model.StatusPending,
	"on-hold":               model.StatusProcessing,
	"had-issues":            model.StatusProcessing,
	"sending-to-production": model.StatusProcessing,
	"in-production":         model.StatusInProduction,
	"partially-fulfilled":   model.StatusInProduction,
	"fulfilled":             model.StatusShipped,
	"canceled":              model.StatusCancelled,
}

func (c *printify) GetOrder(ctx context.Context, providerOrderID string) (*OrderState, error) {
	var resp struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Shipments []struct {
			Carrier     string `json:"carrier"`
			Number      string `json:"number"`
			URL         string `json:"url"`
			ShippedAt   string `json:"shipped_at"`
			DeliveredAt string `json:"delivered_at"`
		} `json:"shipments"`
	}
	if err := c.read(ctx, "get_order", c.path(c.endpoints.OrderStatus, "id", providerOrderID), nil, &resp); err != nil {
		return nil, err
	}

	st := &OrderState{
		ProviderOrderID: resp.ID,
		RawStatus:       resp.Status,
		Status:          mapStatus(printifyStatus, resp.Status),
	}
	allDelivered := len(resp.Shipments) > 0
	for _, s := range resp.Shipments {
		sh := ShipmentState{
			Carrier:        s.Carrier,
			TrackingNumber: s.Number,
			TrackingURL:    s.URL,
			Status:         model.StatusShipped,
			ShippedAt:      parseTime(s.ShippedAt),
			DeliveredAt:    parseTime(s.DeliveredAt),
		}
		if sh.DeliveredAt != nil {
			sh.Status = model.StatusDelivered
		} else {
			allDelivered = false
		}
		st.Shipments = append(st.Shipments, sh)
	}
	if st.Status == model.StatusShipped && allDelivered {
		st.Status = model.StatusDelivered
	}
	return st, nil
}
