package provider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/pkg/net"
)

// prodigi talks to the Prodigi Print API v4. Order creation accepts an
// idempotencyKey, so the writer retries.
type prodigi struct {
	*transport
}

func newProdigi(p *model.Provider, creds Credentials, d net.Dispatcher) Client {
	return &prodigi{transport: newTransport(p, creds, d)}
}

func (c *prodigi) Slug() string                   { return c.slug }
func (c *prodigi) SupportsIdempotentCreate() bool { return c.idempotent }

type prodigiCost struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type prodigiProduct struct {
	SKU         string            `json:"sku"`
	Description string            `json:"description"`
	ProductType string            `json:"productType"`
	Attributes  map[string]string `json:"attributes"`
	Cost        prodigiCost       `json:"cost"`
	IsAvailable *bool             `json:"isAvailable"`
}

func (c *prodigi) FetchCatalog(ctx context.Context) ([]RawProduct, error) {
	var resp struct {
		Outcome  string           `json:"outcome"`
		Products []prodigiProduct `json:"products"`
	}
	if err := c.read(ctx, "catalog", c.path(c.endpoints.Catalog), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]RawProduct, 0, len(resp.Products))
	for _, p := range resp.Products {
		out = append(out, RawProduct{
			SKU:          p.SKU,
			Name:         p.Description,
			Variant:      p.Attributes["size"],
			Category:     p.ProductType,
			Cost:         p.Cost.Amount,
			Currency:     p.Cost.Currency,
			Discontinued: p.IsAvailable != nil && !*p.IsAvailable,
		})
	}
	return out, nil
}

type prodigiItem struct {
	SKU    string         `json:"sku"`
	Copies int            `json:"copies"`
	Sizing string         `json:"sizing,omitempty"`
	Assets []prodigiAsset `json:"assets"`
}

type prodigiAsset struct {
	PrintArea string `json:"printArea"`
	URL       string `json:"url,omitempty"`
}

func prodigiItems(items []Item) []prodigiItem {
	out := make([]prodigiItem, 0, len(items))
	for _, it := range items {
		out = append(out, prodigiItem{
			SKU:    it.SKU,
			Copies: it.Copies,
			Sizing: "fillPrintArea",
			Assets: []prodigiAsset{{PrintArea: "default", URL: it.DesignURL}},
		})
	}
	return out
}

func (c *prodigi) QuoteShipping(ctx context.Context, req RateRequest) ([]RateOption, error) {
	body := map[string]interface{}{
		"destinationCountryCode": req.Destination.CountryCode,
		"items":                  prodigiItems(req.Items),
	}
	var resp struct {
		Outcome string `json:"outcome"`
		Quotes  []struct {
			ShipmentMethod string `json:"shipmentMethod"`
			CostSummary    struct {
				Shipping prodigiCost `json:"shipping"`
			} `json:"costSummary"`
			Shipments []struct {
				Carrier struct {
					Name    string `json:"name"`
					Service string `json:"service"`
				} `json:"carrier"`
				FulfillmentLocation struct {
					CountryCode string `json:"countryCode"`
					LabCode     string `json:"labCode"`
				} `json:"fulfillmentLocation"`
			} `json:"shipments"`
		} `json:"quotes"`
	}
	if err := c.quote(ctx, "quote", c.path(c.endpoints.Shipping), nil, body, &resp); err != nil {
		return nil, err
	}

	out := make([]RateOption, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		opt := RateOption{
			MethodID: q.ShipmentMethod,
			Label:    q.ShipmentMethod,
			Cost:     q.CostSummary.Shipping.Amount,
			Currency: q.CostSummary.Shipping.Currency,
		}
		if len(q.Shipments) > 0 {
			s := q.Shipments[0]
			opt.Carrier = strings.TrimSpace(s.Carrier.Name + " " + s.Carrier.Service)
			opt.Location = s.FulfillmentLocation.CountryCode
			if s.FulfillmentLocation.LabCode != "" {
				opt.Location += "/" + s.FulfillmentLocation.LabCode
			}
		}
		out = append(out, opt)
	}
	return out, nil
}

func (c *prodigi) CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	r := req.Recipient
	body := map[string]interface{}{
		"merchantReference": req.Reference,
		"idempotencyKey":    req.IdempotencyKey,
		"shippingMethod":    req.ShippingMethod,
		"recipient": map[string]interface{}{
			"name":        r.Name,
			"email":       r.Email,
			"phoneNumber": r.Phone,
			"address": map[string]string{
				"line1":           r.Line1,
				"line2":           r.Line2,
				"postalOrZipCode": r.PostalCode,
				"countryCode":     r.CountryCode,
				"townOrCity":      r.City,
				"stateOrCounty":   r.State,
			},
		},
		"items": prodigiItems(req.Items),
	}

	var resp struct {
		Outcome string       `json:"outcome"`
		Order   prodigiOrder `json:"order"`
	}
	if err := c.create(ctx, "create_order", c.path(c.endpoints.Orders), nil, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Order.ID == "" {
		return nil, c.missingOrderID("outcome " + resp.Outcome)
	}
	state := resp.Order.state()
	return &OrderReceipt{ProviderOrderID: state.ProviderOrderID, RawStatus: state.RawStatus, Status: state.Status}, nil
}

type prodigiOrder struct {
	ID     string `json:"id"`
	Status struct {
		Stage   string            `json:"stage"`
		Details map[string]string `json:"details"`
	} `json:"status"`
	Shipments []struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Carrier struct {
			Name    string `json:"name"`
			Service string `json:"service"`
		} `json:"carrier"`
		Tracking struct {
			Number string `json:"number"`
			URL    string `json:"url"`
		} `json:"tracking"`
	} `json:"shipments"`
}

var prodigiShipmentStatus = map[string]string{
	"processing": model.StatusProcessing,
	"shipped":    model.StatusShipped,
	"cancelled":  model.StatusCancelled,
}

// state derives the lifecycle status from the stage plus the per-step details
// (inProduction, shipping).
func (o *prodigiOrder) state() *OrderState {
	stage := strings.ToLower(o.Status.Stage)
	details := make(map[string]string, len(o.Status.Details))
	for k, v := range o.Status.Details {
		details[strings.ToLower(k)] = strings.ToLower(v)
	}

	var status string
	switch stage {
	case "cancelled":
		status = model.StatusCancelled
	case "complete":
		status = model.StatusShipped
	case "draft", "awaitingpayment":
		status = model.StatusPending
	case "inprogress":
		switch {
		case details["shipping"] == "complete":
			status = model.StatusShipped
		case details["inproduction"] == "inprogress" || details["inproduction"] == "complete":
			status = model.StatusInProduction
		default:
			status = model.StatusProcessing
		}
	}

	st := &OrderState{ProviderOrderID: o.ID, RawStatus: o.Status.Stage, Status: status}
	for _, s := range o.Shipments {
		st.Shipments = append(st.Shipments, ShipmentState{
			ProviderShipmentID: s.ID,
			Carrier:            s.Carrier.Name,
			Service:            s.Carrier.Service,
			TrackingNumber:     s.Tracking.Number,
			TrackingURL:        s.Tracking.URL,
			Status:             mapStatus(prodigiShipmentStatus, s.Status),
		})
	}
	return st
}

func (c *prodigi) GetOrder(ctx context.Context, providerOrderID string) (*OrderState, error) {
	var resp struct {
		Outcome string       `json:"outcome"`
		Order   prodigiOrder `json:"order"`
	}
	if err := c.read(ctx, "get_order", c.path(c.endpoints.OrderStatus, "id", providerOrderID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Order.state(), nil
}
