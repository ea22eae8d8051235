package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/pkg/net"
)

// gelato talks to the Gelato API v4. Catalog and orders live on different
// hosts, so its endpoints are absolute URLs.
type gelato struct {
	*transport
}

func newGelato(p *model.Provider, creds Credentials, d net.Dispatcher) Client {
	return &gelato{transport: newTransport(p, creds, d)}
}

func (c *gelato) Slug() string                   { return c.slug }
func (c *gelato) SupportsIdempotentCreate() bool { return c.idempotent }

func (c *gelato) FetchCatalog(ctx context.Context) ([]RawProduct, error) {
	var resp struct {
		Products []struct {
			ProductUID     string            `json:"productUid"`
			Title          string            `json:"title"`
			CatalogUID     string            `json:"catalogUid"`
			Attributes     map[string]string `json:"attributes"`
			Price          decimal.Decimal   `json:"price"`
			Currency       string            `json:"currency"`
			IsDiscontinued bool              `json:"isDiscontinued"`
		} `json:"products"`
	}
	if err := c.read(ctx, "catalog", c.path(c.endpoints.Catalog), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]RawProduct, 0, len(resp.Products))
	for _, p := range resp.Products {
		variant := p.Attributes["PaperFormat"]
		if variant == "" {
			variant = p.Attributes["GarmentSize"]
		}
		out = append(out, RawProduct{
			SKU:          p.ProductUID,
			Name:         p.Title,
			Variant:      variant,
			Category:     p.CatalogUID,
			Cost:         p.Price,
			Currency:     p.Currency,
			Discontinued: p.IsDiscontinued,
		})
	}
	return out, nil
}

func gelatoAddress(a Address) map[string]string {
	first, last := splitName(a.Name)
	return map[string]string{
		"firstName":    first,
		"lastName":     last,
		"addressLine1": a.Line1,
		"addressLine2": a.Line2,
		"city":         a.City,
		"state":        a.State,
		"postCode":     a.PostalCode,
		"country":      a.CountryCode,
		"email":        a.Email,
		"phone":        a.Phone,
	}
}

func gelatoItems(items []Item, withFiles bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for i, it := range items {
		item := map[string]interface{}{
			"itemReferenceId": fmt.Sprintf("line-%d", i+1),
			"productUid":      it.SKU,
			"quantity":        it.Copies,
		}
		if withFiles && it.DesignURL != "" {
			item["files"] = []map[string]string{{"type": "default", "url": it.DesignURL}}
		}
		out = append(out, item)
	}
	return out
}

func (c *gelato) QuoteShipping(ctx context.Context, req RateRequest) ([]RateOption, error) {
	body := map[string]interface{}{
		"orderReferenceId": "quote",
		"currency":         "USD",
		"recipient":        gelatoAddress(req.Destination),
		"products":         gelatoItems(req.Items, false),
	}
	var resp struct {
		Quotes []struct {
			ShipmentMethods []struct {
				Name              string          `json:"name"`
				ShipmentMethodUID string          `json:"shipmentMethodUid"`
				Price             decimal.Decimal `json:"price"`
				Currency          string          `json:"currency"`
				MinDeliveryDays   int             `json:"minDeliveryDays"`
				MaxDeliveryDays   int             `json:"maxDeliveryDays"`
			} `json:"shipmentMethods"`
			FulfillmentCountry string `json:"fulfillmentCountry"`
		} `json:"quotes"`
	}
	if err := c.quote(ctx, "quote", c.path(c.endpoints.Shipping), nil, body, &resp); err != nil {
		return nil, err
	}

	// a split order yields one quote per fulfillment location; methods with the
	// same uid are summed so the option covers every item
	byUID := make(map[string]*RateOption)
	var order []string
	for _, q := range resp.Quotes {
		for _, m := range q.ShipmentMethods {
			opt, ok := byUID[m.ShipmentMethodUID]
			if !ok {
				opt = &RateOption{
					MethodID: m.ShipmentMethodUID,
					Label:    m.Name,
					Currency: m.Currency,
					MinDays:  m.MinDeliveryDays,
					MaxDays:  m.MaxDeliveryDays,
					Location: q.FulfillmentCountry,
				}
				byUID[m.ShipmentMethodUID] = opt
				order = append(order, m.ShipmentMethodUID)
			}
			opt.Cost = opt.Cost.Add(m.Price)
			if m.MinDeliveryDays > opt.MinDays {
				opt.MinDays = m.MinDeliveryDays
			}
			if m.MaxDeliveryDays > opt.MaxDays {
				opt.MaxDays = m.MaxDeliveryDays
			}
		}
	}

	out := make([]RateOption, 0, len(order))
	for _, uid := range order {
		out = append(out, *byUID[uid])
	}
	return out, nil
}

func (c *gelato) CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	body := map[string]interface{}{
		"orderType":           "order",
		"orderReferenceId":    req.Reference,
		"customerReferenceId": req.Reference,
		"currency":            "USD",
		"shipmentMethodUid":   req.ShippingMethod,
		"shippingAddress":     gelatoAddress(req.Recipient),
		"items":               gelatoItems(req.Items, true),
	}
	var resp gelatoOrder
	if err := c.create(ctx, "create_order", c.path(c.endpoints.Orders), nil, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, c.missingOrderID("")
	}
	st := resp.state()
	return &OrderReceipt{ProviderOrderID: st.ProviderOrderID, RawStatus: st.RawStatus, Status: st.Status}, nil
}

var gelatoStatus = map[string]string{
	"created":          model.StatusPending,
	"draft":            model.StatusPending,
	"pending_approval": model.StatusPending,
	"passed":           model.StatusProcessing,
	"on_hold":          model.StatusProcessing,
	"in_production":    model.StatusInProduction,
	"printed":          model.StatusInProduction,
	"shipped":          model.StatusShipped,
	"delivered":        model.StatusDelivered,
	"canceled":         model.StatusCancelled,
	"failed":           model.StatusFailed,
}

type gelatoOrder struct {
	ID                string `json:"id"`
	FulfillmentStatus string `json:"fulfillmentStatus"`
	Shipment          *struct {
		ID                string `json:"id"`
		ShipmentMethodUID string `json:"shipmentMethodUid"`
		Packages          []struct {
			ID           string `json:"id"`
			TrackingCode string `json:"trackingCode"`
			TrackingURL  string `json:"trackingUrl"`
			Carrier      string `json:"carrier"`
		} `json:"packages"`
	} `json:"shipment"`
	ShippedAt   string `json:"shippedAt"`
	DeliveredAt string `json:"deliveredAt"`
}

func (o *gelatoOrder) state() *OrderState {
	raw := strings.ToLower(o.FulfillmentStatus)
	st := &OrderState{
		ProviderOrderID: o.ID,
		RawStatus:       o.FulfillmentStatus,
		Status:          mapStatus(gelatoStatus, raw),
	}
	if o.Shipment == nil {
		return st
	}
	shipStatus := model.StatusShipped
	if st.Status == model.StatusDelivered {
		shipStatus = model.StatusDelivered
	}
	for _, p := range o.Shipment.Packages {
		st.Shipments = append(st.Shipments, ShipmentState{
			ProviderShipmentID: p.ID,
			Carrier:            p.Carrier,
			Service:            o.Shipment.ShipmentMethodUID,
			TrackingNumber:     p.TrackingCode,
			TrackingURL:        p.TrackingURL,
			Status:             shipStatus,
			ShippedAt:          parseTime(o.ShippedAt),
			DeliveredAt:        parseTime(o.DeliveredAt),
		})
	}
	return st
}

func (c *gelato) GetOrder(ctx context.Context, providerOrderID string) (*OrderState, error) {
	var resp gelatoOrder
	if err := c.read(ctx, "get_order", c.path(c.endpoints.OrderStatus, "id", providerOrderID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.state(), nil
}
