package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	"pod_fulfillment_v1/internal/provider/providermock"
	"pod_fulfillment_v1/internal/repository"
	"pod_fulfillment_v1/pkg/money"
	"pod_fulfillment_v1/pkg/net"
)

// ==================== test helpers ====================

var dbSeq atomic.Int64

func setupTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels()...), "migrate")
	return db
}

func testRates() money.Rates {
	rates, err := money.ParseRates(map[string]string{
		"USD": "5.00",
		"GBP": "6.50",
		"EUR": "5.50",
	})
	if err != nil {
		panic(err)
	}
	return rates
}

func testPolicy() PricingPolicy {
	return PricingPolicy{
		MinimumMarginPct:  decimal.NewFromInt(30),
		ShippingMarkupPct: decimal.NewFromInt(10),
	}
}

// testEnv wires every service against an in-memory database. Provider
// clients are gomock mocks installed after the registry loads.
type testEnv struct {
	db       *gorm.DB
	ctrl     *gomock.Controller
	logs     *observer.ObservedLogs
	clients  *provider.ClientSet
	registry *RegistryService
	guard    *PricingGuard
	catalog  *CatalogService
	carts    *CartService
	quotes   *QuoteService
	orders   *OrderService
	tracking *TrackingService
	orderRep repository.OrderRepository
	mocks    map[string]*providermock.MockClient
	now      time.Time
}

// newTestEnv seeds the named built-in providers (all when none given) and
// installs a mock client for every one that has an integration.
func newTestEnv(t *testing.T, slugs ...string) *testEnv {
	t.Helper()
	ctx := context.Background()

	db := setupTestDB(t)
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	env := &testEnv{
		db:       db,
		ctrl:     gomock.NewController(t),
		logs:     logs,
		clients:  provider.NewClientSet(net.NewDispatcher(), nil),
		guard:    NewPricingGuard(testPolicy()),
		orderRep: repository.NewOrderRepository(db),
		mocks:    make(map[string]*providermock.MockClient),
		now:      time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	env.registry = NewRegistryService(repository.NewProviderRepository(db), env.clients, log)
	_, err := env.registry.Seed(ctx, seedProviders(slugs...))
	require.NoError(t, err)

	env.catalog = NewCatalogService(env.registry, repository.NewCatalogRepository(db), env.guard, testRates(), time.Second, log)
	env.catalog.now = clock
	env.carts = NewCartService(env.catalog, env.registry, env.guard, time.Hour, log)
	env.carts.now = clock
	env.quotes = NewQuoteService(env.registry, env.catalog, env.carts, env.guard, testRates(),
		QuoteServiceOptions{ProviderTimeout: time.Second}, log)
	env.quotes.now = clock
	env.orders = NewOrderService(env.orderRep, env.registry, env.carts, env.quotes, env.guard, time.Second, "POD", log)
	env.orders.now = clock
	env.tracking = NewTrackingService(env.orderRep, env.registry, TrackingServiceOptions{ProviderTimeout: time.Second}, log)

	env.installMocks()
	return env
}

// installMocks replaces the real clients with mocks; call again after a registry reload.
func (e *testEnv) installMocks() {
	for _, p := range e.registry.ListProviders() {
		if !p.IsRetrievable() || !provider.Supported(p.Slug) {
			continue
		}
		m, ok := e.mocks[p.Slug]
		if !ok {
			m = providermock.NewMockClient(e.ctrl)
			m.EXPECT().Slug().Return(p.Slug).AnyTimes()
			m.EXPECT().SupportsIdempotentCreate().Return(p.SupportsIdempotentCreate()).AnyTimes()
			e.mocks[p.Slug] = m
		}
		e.clients.Register(m)
	}
}

func (e *testEnv) mock(slug string) *providermock.MockClient {
	m, ok := e.mocks[slug]
	if !ok {
		panic("no mock for " + slug)
	}
	return m
}

func seedProviders(slugs ...string) []model.Provider {
	all := DefaultProviders()
	if len(slugs) == 0 {
		return all
	}
	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[s] = true
	}
	var out []model.Provider
	for _, p := range all {
		if want[p.Slug] {
			out = append(out, p)
		}
	}
	return out
}

// addProduct stores a catalog product directly, bypassing sync.
func (e *testEnv) addProduct(t *testing.T, slug, sku, name string, baseCost money.Cents) model.CatalogProduct {
	t.Helper()
	p, err := e.registry.GetProvider(slug)
	require.NoError(t, err)
	cp := model.CatalogProduct{
		ProviderSlug:   slug,
		SKU:            sku,
		Name:           name,
		Category:       p.Specialization,
		SourceCurrency: money.ReferenceCurrency,
		SourceCost:     baseCost.String(),
		FxRate:         "1",
		BaseCost:       baseCost,
		SuggestedPrice: e.guard.SuggestedPrice(p, baseCost),
		SyncedAt:       e.now,
	}
	require.NoError(t, repository.NewCatalogRepository(e.db).UpsertBatch(context.Background(), []model.CatalogProduct{cp}))
	return cp
}

func (e *testEnv) addLine(t *testing.T, session, slug, sku string, copies int, price money.Cents) *Cart {
	t.Helper()
	cart, err := e.carts.AddLine(context.Background(), session, AddLineInput{
		ProviderSlug: slug,
		SKU:          sku,
		Copies:       copies,
		DesignURL:    "https://cdn.example.com/designs/" + sku + ".png",
		SellingPrice: &price,
	})
	require.NoError(t, err)
	return cart
}

func brazil() model.Recipient {
	return model.Recipient{
		Name:        "Ana Souza",
		Email:       "ana@example.com",
		Line1:       "Rua Augusta, 1500",
		City:        "São Paulo",
		State:       "SP",
		PostalCode:  "01304-001",
		CountryCode: "BR",
	}
}

func cents(c money.Cents) *money.Cents { return &c }

func rate(methodID, label, cost, currency string, minDays, maxDays int) provider.RateOption {
	return provider.RateOption{
		MethodID: methodID,
		Label:    label,
		Cost:     decimal.RequireFromString(cost),
		Currency: currency,
		MinDays:  minDays,
		MaxDays:  maxDays,
	}
}
