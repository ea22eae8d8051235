package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"pod_fulfillment_v1/internal/model"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/net"
)

// ==================== helpers ====================

func testProvider(slug, baseURL string, ep model.Endpoints, idempotent bool) *model.Provider {
	return &model.Provider{
		Slug:               slug,
		Name:               slug,
		Status:             model.ProviderActive,
		APIBaseURL:         baseURL,
		AuthMethod:         net.AuthAPIKey,
		Endpoints:          datatypes.NewJSONType(ep),
		RateLimitPerMinute: 6000,
		Capabilities:       datatypes.NewJSONType(model.Capabilities{IdempotentCreate: idempotent}),
	}
}

func testCreds() Credentials {
	return Credentials{Token: "secret", Timeout: 2 * time.Second, RetryCount: 1}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

var recipient = Address{
	Name:        "Maria Silva",
	Email:       "maria@example.com",
	Line1:       "Rua Augusta 100",
	City:        "Sao Paulo",
	State:       "SP",
	PostalCode:  "01304-000",
	CountryCode: "BR",
}

// ==================== prodigi ====================

func TestProdigiQuoteAndCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		switch r.URL.Path {
		case "/v4.0/quotes":
			body := decodeBody(t, r)
			assert.Equal(t, "BR", body["destinationCountryCode"])
			writeJSON(w, map[string]interface{}{
				"outcome": "Created",
				"quotes": []map[string]interface{}{{
					"shipmentMethod": "Standard",
					"costSummary":    map[string]interface{}{"shipping": map[string]string{"amount": "9.50", "currency": "GBP"}},
					"shipments": []map[string]interface{}{{
						"carrier":             map[string]string{"name": "Royal Mail", "service": "International"},
						"fulfillmentLocation": map[string]string{"countryCode": "GB", "labCode": "prodigi_gb1"},
					}},
				}},
			})
		case "/v4.0/orders":
			body := decodeBody(t, r)
			assert.Equal(t, "key-1", body["idempotencyKey"])
			assert.Equal(t, "POD-1", body["merchantReference"])
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, map[string]interface{}{
				"outcome": "Created",
				"order": map[string]interface{}{
					"id":     "ord_123",
					"status": map[string]interface{}{"stage": "InProgress", "details": map[string]string{"inProduction": "NotStarted"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := testProvider("prodigi", srv.URL, model.Endpoints{
		Catalog: "/v4.0/products", Shipping: "/v4.0/quotes", Orders: "/v4.0/orders", OrderStatus: "/v4.0/orders/{id}",
	}, true)
	c, err := New(p, testCreds(), net.NewDispatcher())
	require.NoError(t, err)
	assert.True(t, c.SupportsIdempotentCreate())

	opts, err := c.QuoteShipping(context.Background(), RateRequest{
		Destination: recipient,
		Items:       []Item{{SKU: "GLOBAL-CAN-A3", Copies: 2}},
	})
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Standard", opts[0].Label)
	assert.True(t, decimal.RequireFromString("9.50").Equal(opts[0].Cost))
	assert.Equal(t, "GBP", opts[0].Currency)
	assert.Equal(t, "Royal Mail International", opts[0].Carrier)
	assert.Equal(t, "GB/prodigi_gb1", opts[0].Location)
	assert.Zero(t, opts[0].MinDays)

	receipt, err := c.CreateOrder(context.Background(), OrderRequest{
		Reference:      "POD-1",
		IdempotencyKey: "key-1",
		ShippingMethod: "Standard",
		Recipient:      recipient,
		Items:          []Item{{SKU: "GLOBAL-CAN-A3", Copies: 2, DesignURL: "https://cdn.example.com/a.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ord_123", receipt.ProviderOrderID)
	assert.Equal(t, model.StatusProcessing, receipt.Status)
}

func TestProdigiStageMapping(t *testing.T) {
	cases := []struct {
		stage   string
		details map[string]string
		want    string
	}{
		{"Draft", nil, model.StatusPending},
		{"InProgress", map[string]string{"inProduction": "InProgress"}, model.StatusInProduction},
		{"InProgress", map[string]string{"inProduction": "Complete", "shipping": "Complete"}, model.StatusShipped},
		{"Complete", nil, model.StatusShipped},
		{"Cancelled", nil, model.StatusCancelled},
		{"Mystery", nil, ""},
	}
	for _, tc := range cases {
		o := prodigiOrder{ID: "x"}
		o.Status.Stage = tc.stage
		o.Status.Details = tc.details
		assert.Equal(t, tc.want, o.state().Status, tc.stage)
	}
}

// ==================== printful ====================

func TestPrintfulOrderStatusAndShipments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/orders/77", r.URL.Path)
		writeJSON(w, map[string]interface{}{
			"code": 200,
			"result": map[string]interface{}{
				"id":     77,
				"status": "fulfilled",
				"shipments": []map[string]interface{}{{
					"id": 5, "carrier": "USPS", "service": "First Class",
					"tracking_number": "9400", "tracking_url": "https://t.example/9400",
					"ship_date": "2026-03-01", "delivered": true,
				}},
			},
		})
	}))
	defer srv.Close()

	p := testProvider("printful", srv.URL, model.Endpoints{OrderStatus: "/orders/{id}"}, false)
	p.AuthMethod = net.AuthBearer
	c, err := New(p, testCreds(), net.NewDispatcher())
	require.NoError(t, err)

	st, err := c.GetOrder(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "77", st.ProviderOrderID)
	assert.Equal(t, model.StatusDelivered, st.Status)
	require.Len(t, st.Shipments, 1)
	assert.Equal(t, "9400", st.Shipments[0].TrackingNumber)
	require.NotNil(t, st.Shipments[0].ShippedAt)
	assert.Equal(t, 2026, st.Shipments[0].ShippedAt.Year())
}

func TestPrintfulRejectsNonNumericSKU(t *testing.T) {
	p := testProvider("printful", "http://example.invalid", model.Endpoints{Shipping: "/shipping/rates"}, false)
	c, err := New(p, testCreds(), net.NewDispatcher())
	require.NoError(t, err)

	_, err = c.QuoteShipping(context.Background(), RateRequest{Destination: recipient, Items: []Item{{SKU: "abc", Copies: 1}}})
	require.Error(t, err)
}

func TestPrintfulCreateWithoutOrderIDIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("confirm"))
		writeJSON(w, map[string]interface{}{"code": 200, "result": map[string]interface{}{}})
	}))
	defer srv.Close()

	p := testProvider("printful", srv.URL, model.Endpoints{Orders: "/orders"}, false)
	p.AuthMethod = net.AuthBearer
	c, err := New(p, testCreds(), net.NewDispatcher())
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), OrderRequest{
		Reference:      "POD-20260302-ABCDEF12",
		ShippingMethod: "STANDARD",
		Recipient:      recipient,
		Items:          []Item{{SKU: "4012", Copies: 1, DesignURL: "https://cdn.example.com/d.png"}},
	})
	require.True(t, apperrors.IsProviderRejection(err), "got %v", err)
	var rejected *apperrors.ErrProvider
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "printful", rejected.Provider)
	assert.Contains(t, rejected.Message, "without id")
}

// ==================== printify ====================

func TestPrintifyQuoteOrderIsStable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shops/42/orders/shipping.json", r.URL.Path)
		writeJSON(w, map[string]int64{"express": 2500, "standard": 799, "unknown": 1})
	}))
	defer srv.Close()

	p := testProvider("printify", srv.URL, model.Endpoints{Shipping: "/shops/{shop_id}/orders/shipping.json"}, false)
	creds := testCreds()
	creds.ShopID = "42"
	c, err := New(p, creds, net.NewDispatcher())
	require.NoError(t, err)

	opts, err := c.QuoteShipping(context.Background(), RateRequest{Destination: recipient, Items: []Item{{SKU: "TEE-1", Copies: 1}}})
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "Standard", opts[0].Label)
	assert.True(t, decimal.RequireFromString("7.99").Equal(opts[0].Cost))
	assert.Equal(t, "Express", opts[1].Label)
}

// ==================== gelato ====================

func TestGelatoAbsoluteEndpointsAndMethodMerge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/orders:quote", r.URL.Path)
		method := func(price string, min, max int) map[string]interface{} {
			return map[string]interface{}{
				"name": "Standard", "shipmentMethodUid": "standard", "price": price, "currency": "EUR",
				"minDeliveryDays": min, "maxDeliveryDays": max,
			}
		}
		writeJSON(w, map[string]interface{}{
			"quotes": []map[string]interface{}{
				{"fulfillmentCountry": "BR", "shipmentMethods": []interface{}{method("4.00", 5, 9)}},
				{"fulfillmentCountry": "US", "shipmentMethods": []interface{}{method("6.50", 7, 14)}},
			},
		})
	}))
	defer srv.Close()

	p := testProvider("gelato", "http://unused.invalid", model.Endpoints{Shipping: srv.URL + "/v4/orders:quote"}, false)
	c, err := New(p, testCreds(), net.NewDispatcher())
	require.NoError(t, err)

	opts, err := c.QuoteShipping(context.Background(), RateRequest{Destination: recipient, Items: []Item{{SKU: "poster_a3", Copies: 1}}})
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.True(t, decimal.RequireFromString("10.50").Equal(opts[0].Cost))
	assert.Equal(t, 7, opts[0].MinDays)
	assert.Equal(t, 14, opts[0].MaxDays)
}

// ==================== gooten ====================

func TestGootenOnlyOffersMethodsEverySKUSupports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "recipe-1", r.URL.Query().Get("recipeid"))
		opt := func(method, price string, days int) map[string]interface{} {
			return map[string]interface{}{
				"MethodType": method, "Price": map[string]string{"Price": price, "CurrencyCode": "USD"},
				"EstBusinessDaysTilDelivery": days,
			}
		}
		writeJSON(w, map[string]interface{}{
			"Result": []map[string]interface{}{
				{"SKU": "A", "ShipOptions": []interface{}{opt("standard", "3.00", 10), opt("expedited", "9.00", 4)}},
				{"SKU": "B", "ShipOptions": []interface{}{opt("standard", "2.00", 12)}},
			},
		})
	}))
	defer srv.Close()

	p := testProvider("gooten", srv.URL, model.Endpoints{Shipping: "/v/5/source/api/shippingprices"}, false)
	creds := testCreds()
	creds.RecipeID = "recipe-1"
	c, err := New(p, creds, net.NewDispatcher())
	require.NoError(t, err)

	opts, err := c.QuoteShipping(context.Background(), RateRequest{
		Destination: recipient,
		Items:       []Item{{SKU: "A", Copies: 1}, {SKU: "B", Copies: 1}},
	})
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Standard", opts[0].Label)
	assert.True(t, decimal.RequireFromString("5.00").Equal(opts[0].Cost))
	assert.Equal(t, 12, opts[0].MaxDays)
}

// ==================== generic ====================

func TestGenericSendsIdempotencyKeyAndMapsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "key-9", r.Header.Get("Idempotency-Key"))
			writeJSON(w, map[string]string{"id": "cc-1", "status": "received"})
		default:
			writeJSON(w, map[string]interface{}{
				"id": "cc-1", "status": "In Production",
				"shipments": []map[string]string{{"id": "s1", "carrier": "UPS", "status": "shipped", "shipped_at": "2026-02-01T10:00:00Z"}},
			})
		}
	}))
	defer srv.Close()

	p := testProvider("customcat", srv.URL, model.Endpoints{Orders: "/orders", OrderStatus: "/orders/{id}"}, true)
	c, err := New(p, testCreds(), net.NewDispatcher())
	require.NoError(t, err)

	receipt, err := c.CreateOrder(context.Background(), OrderRequest{Reference: "POD-2", IdempotencyKey: "key-9", Recipient: recipient, Items: []Item{{SKU: "X", Copies: 1}}})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, receipt.Status)

	st, err := c.GetOrder(context.Background(), "cc-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProduction, st.Status)
	require.Len(t, st.Shipments, 1)
	assert.Equal(t, model.StatusShipped, st.Shipments[0].Status)
}

// ==================== error classification ====================

func TestErrorClassification(t *testing.T) {
	var creates int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rates":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"destination not served"}`))
		case "/orders":
			atomic.AddInt32(&creates, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	p := testProvider("spod", srv.URL, model.Endpoints{Shipping: "/rates", Orders: "/orders"}, false)
	c, err := New(p, testCreds(), net.NewDispatcher())
	require.NoError(t, err)

	_, err = c.QuoteShipping(context.Background(), RateRequest{Destination: recipient})
	var rejected *apperrors.ErrProvider
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
	assert.Contains(t, rejected.Message, "destination not served")

	_, err = c.CreateOrder(context.Background(), OrderRequest{Reference: "POD-3"})
	assert.True(t, apperrors.IsUnavailable(err))
	// non-idempotent create is attempted exactly once
	assert.Equal(t, int32(1), atomic.LoadInt32(&creates))
}

// ==================== client set ====================

func TestClientSetLoad(t *testing.T) {
	mk := func(slug, status string) model.Provider {
		p := testProvider(slug, "http://example.invalid", model.Endpoints{}, false)
		p.Status = status
		return *p
	}
	set := NewClientSet(net.NewDispatcher(), nil)
	set.Load([]model.Provider{
		mk("prodigi", model.ProviderActive),
		mk("gelato", model.ProviderTesting),
		mk("gooten", model.ProviderInactive),
		mk("zazzle", model.ProviderComingSoon),
	})

	_, err := set.Client("prodigi")
	assert.NoError(t, err)
	_, err = set.Client("gelato")
	assert.NoError(t, err)

	_, err = set.Client("gooten")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = set.Client("zazzle")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestParseTimeLayouts(t *testing.T) {
	for _, s := range []string{"2026-01-02T03:04:05Z", "2026-01-02 03:04:05+00:00", "2026-01-02"} {
		got := parseTime(s)
		require.NotNil(t, got, s)
		assert.Equal(t, 2026, got.Year())
	}
	assert.Nil(t, parseTime(""))
	assert.Nil(t, parseTime("yesterday"))
}
