package provider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/pkg/net"
)

// gooten talks to the Gooten API. Requests are scoped by a recipe id passed
// as a query parameter; shipping prices come back per SKU and are summed per method.
type gooten struct {
	*transport
	recipeID string
}

func newGooten(p *model.Provider, creds Credentials, d net.Dispatcher) Client {
	return &gooten{transport: newTransport(p, creds, d), recipeID: creds.RecipeID}
}

func (c *gooten) Slug() string                   { return c.slug }
func (c *gooten) SupportsIdempotentCreate() bool { return c.idempotent }

func (c *gooten) query(extra map[string]string) map[string]string {
	q := map[string]string{"recipeid": c.recipeID}
	for k, v := range extra {
		q[k] = v
	}
	return q
}

func (c *gooten) FetchCatalog(ctx context.Context) ([]RawProduct, error) {
	var resp struct {
		ProductVariants []struct {
			Sku       string `json:"Sku"`
			Name      string `json:"Name"`
			Size      string `json:"Size"`
			Category  string `json:"Category"`
			PriceInfo struct {
				Price        decimal.Decimal `json:"Price"`
				CurrencyCode string          `json:"CurrencyCode"`
			} `json:"PriceInfo"`
			IsDiscontinued bool `json:"IsDiscontinued"`
		} `json:"ProductVariants"`
	}
	if err := c.read(ctx, "catalog", c.path(c.endpoints.Catalog), c.query(map[string]string{"all": "true"}), &resp); err != nil {
		return nil, err
	}

	out := make([]RawProduct, 0, len(resp.ProductVariants))
	for _, v := range resp.ProductVariants {
		out = append(out, RawProduct{
			SKU:          v.Sku,
			Name:         v.Name,
			Variant:      v.Size,
			Category:     v.Category,
			Cost:         v.PriceInfo.Price,
			Currency:     v.PriceInfo.CurrencyCode,
			Discontinued: v.IsDiscontinued,
		})
	}
	return out, nil
}

type gootenPrice struct {
	Price        decimal.Decimal `json:"Price"`
	CurrencyCode string          `json:"CurrencyCode"`
}

func (c *gooten) QuoteShipping(ctx context.Context, req RateRequest) ([]RateOption, error) {
	items := make([]map[string]interface{}, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, map[string]interface{}{"SKU": it.SKU, "ShipType": "standard", "Quantity": it.Copies})
	}
	body := map[string]interface{}{
		"ShipToPostalCode": req.Destination.PostalCode,
		"ShipToCountry":    req.Destination.CountryCode,
		"ShipToState":      req.Destination.State,
		"CurrencyCode":     "USD",
		"Items":            items,
	}
	var resp struct {
		Result []struct {
			SKU         string `json:"SKU"`
			ShipOptions []struct {
				MethodType                 string      `json:"MethodType"`
				Name                       string      `json:"Name"`
				Price                      gootenPrice `json:"Price"`
				EstBusinessDaysTilDelivery int         `json:"EstBusinessDaysTilDelivery"`
			} `json:"ShipOptions"`
		} `json:"Result"`
	}
	if err := c.quote(ctx, "quote", c.path(c.endpoints.Shipping), c.query(nil), body, &resp); err != nil {
		return nil, err
	}

	// a method is offered only if every SKU in the request can ship with it
	byMethod := make(map[string]*RateOption)
	seen := make(map[string]int)
	var order []string
	for _, r := range resp.Result {
		for _, o := range r.ShipOptions {
			key := strings.ToLower(o.MethodType)
			if key == "" {
				continue
			}
			opt, ok := byMethod[key]
			if !ok {
				opt = &RateOption{
					MethodID: o.MethodType,
					Label:    strings.ToUpper(key[:1]) + key[1:],
					Currency: o.Price.CurrencyCode,
				}
				byMethod[key] = opt
				order = append(order, key)
			}
			opt.Cost = opt.Cost.Add(o.Price.Price)
			if o.EstBusinessDaysTilDelivery > opt.MaxDays {
				opt.MaxDays = o.EstBusinessDaysTilDelivery
			}
			seen[key]++
		}
	}

	out := make([]RateOption, 0, len(order))
	for _, key := range order {
		if seen[key] < len(resp.Result) {
			continue
		}
		opt := *byMethod[key]
		opt.MinDays = opt.MaxDays
		out = append(out, opt)
	}
	return out, nil
}

func (c *gooten) CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	first, last := splitName(req.Recipient.Name)
	address := map[string]string{
		"FirstName":   first,
		"LastName":    last,
		"Line1":       req.Recipient.Line1,
		"Line2":       req.Recipient.Line2,
		"City":        req.Recipient.City,
		"State":       req.Recipient.State,
		"CountryCode": req.Recipient.CountryCode,
		"PostalCode":  req.Recipient.PostalCode,
		"Phone":       req.Recipient.Phone,
		"Email":       req.Recipient.Email,
	}
	items := make([]map[string]interface{}, 0, len(req.Items))
	for _, it := range req.Items {
		item := map[string]interface{}{
			"SKU":      it.SKU,
			"ShipType": strings.ToLower(req.ShippingMethod),
			"Quantity": it.Copies,
		}
		if it.DesignURL != "" {
			item["Images"] = []map[string]string{{"Url": it.DesignURL}}
		}
		items = append(items, item)
	}
	body := map[string]interface{}{
		"ShipToAddress":           address,
		"BillingAddress":          address,
		"Items":                   items,
		"Payment":                 map[string]string{"PartnerBillingKey": c.recipeID},
		"SourceId":                req.Reference,
		"IsPartnerSourceIdUnique": true,
	}
	var resp struct {
		ID string `json:"Id"`
	}
	if err := c.create(ctx, "create_order", c.path(c.endpoints.Orders), c.query(nil), nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, c.missingOrderID("")
	}
	return &OrderReceipt{ProviderOrderID: resp.ID, RawStatus: "New", Status: model.StatusPending}, nil
}

var gootenStatus = map[string]string{
	"new":                    model.StatusPending,
	"pending":                model.StatusPending,
	"in production":          model.StatusInProduction,
	"received by production": model.StatusProcessing,
	"hold":                   model.StatusProcessing,
	"hold for payment":       model.StatusPending,
	"shipped":                model.StatusShipped,
	"delivered":              model.StatusDelivered,
	"cancelled":              model.StatusCancelled,
	"failed":                 model.StatusFailed,
}

func (c *gooten) GetOrder(ctx context.Context, providerOrderID string) (*OrderState, error) {
	var resp struct {
		ID    string `json:"Id"`
		Items []struct {
			Status    string `json:"Status"`
			Shipments []struct {
				Carrier        string `json:"CarrierName"`
				TrackingNumber string `json:"TrackingNumber"`
				TrackingURL    string `json:"TrackingUrl"`
				ShippedOn      string `json:"ShippedOn"`
			} `json:"Shipments"`
		} `json:"Items"`
	}
	q := c.query(map[string]string{"id": providerOrderID})
	if err := c.read(ctx, "get_order", c.path(c.endpoints.OrderStatus, "id", providerOrderID), q, &resp); err != nil {
		return nil, err
	}

	// gooten reports status per line item; the order is as far along as its slowest item
	st := &OrderState{ProviderOrderID: resp.ID}
	var raws, mapped []string
	unknown := ""
	for _, it := range resp.Items {
		raws = append(raws, it.Status)
		m := mapStatus(gootenStatus, it.Status)
		if m == "" && unknown == "" {
			unknown = it.Status
		}
		mapped = append(mapped, m)
		for _, s := range it.Shipments {
			st.Shipments = append(st.Shipments, ShipmentState{
				Carrier:        s.Carrier,
				TrackingNumber: s.TrackingNumber,
				TrackingURL:    s.TrackingURL,
				Status:         model.StatusShipped,
				ShippedAt:      parseTime(s.ShippedOn),
			})
		}
	}
	st.RawStatus = strings.Join(raws, ",")
	if unknown == "" {
		st.Status = model.AggregateStatus(mapped...)
	}
	return st, nil
}
