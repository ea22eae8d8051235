package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/money"
)

func TestMapCategory(t *testing.T) {
	tests := []struct {
		raw, name string
		want      string
		ok        bool
	}{
		{"wall_art", "", model.CategoryWallArt, true},
		{"Home Decor", "", model.CategoryHomeDecor, true},
		{"T-Shirts", "", model.CategoryApparel, true},
		{"Mugs", "", model.CategoryHomeDecor, true},
		{"", "Gold Heart Necklace", model.CategoryJewelry, true},
		{"Canvas", "Stretched canvas 30x40", model.CategoryWallArt, true},
		{"Phone Cases", "", model.CategoryAccessories, true},
		{"Greeting Cards", "", model.CategoryStationery, true},
		{"Widgets", "String lights", model.CategoryGeneral, false},
		{"", "", model.CategoryGeneral, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw+"|"+tt.name, func(t *testing.T) {
			got, ok := MapCategory(tt.raw, tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNormalizeProduct(t *testing.T) {
	guard := NewPricingGuard(testPolicy())
	p := &model.Provider{Slug: "prodigi", SourceCurrency: "GBP", SuggestedMarginBps: 5000, MinimumProfit: 2500}
	syncedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("converts with the snapshot rate and rounds up", func(t *testing.T) {
		cp, err := NormalizeProduct(p, provider.RawProduct{
			SKU:      " GLOBAL-CAN-A3 ",
			Name:     "Canvas A3",
			Category: "Canvas",
			Cost:     decimal.RequireFromString("3.333"),
		}, testRates(), guard, syncedAt)
		require.NoError(t, err)

		assert.Equal(t, "GLOBAL-CAN-A3", cp.SKU)
		assert.Equal(t, "GBP", cp.SourceCurrency)
		assert.Equal(t, "3.333", cp.SourceCost)
		assert.Equal(t, "6.5", cp.FxRate)
		assert.EqualValues(t, 2167, cp.BaseCost) // 21.6645
		assert.Equal(t, model.CategoryWallArt, cp.Category)
		assert.False(t, cp.NeedsReview)
		assert.Equal(t, guard.SuggestedPrice(p, cp.BaseCost), cp.SuggestedPrice)
		assert.Equal(t, syncedAt, cp.SyncedAt)
	})

	t.Run("explicit currency wins over the provider default", func(t *testing.T) {
		cp, err := NormalizeProduct(p, provider.RawProduct{SKU: "X", Cost: decimal.RequireFromString("10.01"), Currency: "usd"}, testRates(), guard, syncedAt)
		require.NoError(t, err)
		assert.EqualValues(t, 5005, cp.BaseCost)
		assert.Equal(t, "USD", cp.SourceCurrency)
	})

	t.Run("unmapped category is flagged", func(t *testing.T) {
		cp, err := NormalizeProduct(p, provider.RawProduct{SKU: "X", Name: "Widget", Category: "Widgets", Cost: decimal.NewFromInt(1)}, testRates(), guard, syncedAt)
		require.NoError(t, err)
		assert.Equal(t, model.CategoryGeneral, cp.Category)
		assert.True(t, cp.NeedsReview)
		assert.Equal(t, "Widgets", cp.RawCategory)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := NormalizeProduct(p, provider.RawProduct{SKU: "", Cost: decimal.NewFromInt(1)}, testRates(), guard, syncedAt)
		assert.True(t, apperrors.IsValidation(err))

		_, err = NormalizeProduct(p, provider.RawProduct{SKU: "X", Cost: decimal.Zero}, testRates(), guard, syncedAt)
		assert.True(t, apperrors.IsValidation(err))

		_, err = NormalizeProduct(p, provider.RawProduct{SKU: "X", Cost: decimal.NewFromInt(1), Currency: "JPY"}, testRates(), guard, syncedAt)
		var unknown *money.ErrUnknownCurrency
		assert.True(t, errors.As(err, &unknown))
	})
}

// Every normalized product keeps its suggested price at or above the margin floor.
func TestNormalizeProduct_SuggestedPriceFloor(t *testing.T) {
	guard := NewPricingGuard(testPolicy())
	rates := testRates()
	currencies := []string{"USD", "GBP", "EUR", "BRL"}

	rapid.Check(t, func(t *rapid.T) {
		p := &model.Provider{
			Slug:               "p",
			SourceCurrency:     rapid.SampledFrom(currencies).Draw(t, "currency"),
			SuggestedMarginBps: rapid.IntRange(0, 10000).Draw(t, "bps"),
			MinimumProfit:      money.Cents(rapid.Int64Range(0, 10000).Draw(t, "minProfit")),
		}
		cost := decimal.New(rapid.Int64Range(1, 5_000_000).Draw(t, "cost"), -3)

		cp, err := NormalizeProduct(p, provider.RawProduct{SKU: "S", Cost: cost}, rates, guard, time.Time{})
		if err != nil {
			t.Fatal(err)
		}
		rate, _ := rates.Rate(p.SourceCurrency)
		if cp.BaseCost.Decimal().LessThan(cost.Mul(rate)) {
			t.Fatalf("base %s below converted cost %s", cp.BaseCost, cost.Mul(rate))
		}
		// suggested >= base * 1.30
		if int64(cp.SuggestedPrice)*100 < int64(cp.BaseCost)*130 {
			t.Fatalf("suggested %s below margin floor for base %s", cp.SuggestedPrice, cp.BaseCost)
		}
	})
}

func TestCatalogService_SyncCatalog(t *testing.T) {
	env := newTestEnv(t, "printful")
	ctx := context.Background()

	first := []provider.RawProduct{
		{SKU: "4012", Name: "Unisex Tee", Variant: "M / Black", Category: "T-Shirts", Cost: decimal.RequireFromString("9.25"), Currency: "USD"},
		{SKU: "4013", Name: "Unisex Tee", Variant: "L / Black", Category: "T-Shirts", Cost: decimal.RequireFromString("9.25"), Currency: "USD"},
		{SKU: "4012", Name: "duplicate", Cost: decimal.NewFromInt(1)},
		{SKU: "", Name: "broken", Cost: decimal.NewFromInt(1)},
		{SKU: "9001", Name: "Mystery item", Category: "Widgets", Cost: decimal.NewFromInt(2)},
	}
	second := []provider.RawProduct{first[0]}

	m := env.mock("printful")
	gomock.InOrder(
		m.EXPECT().FetchCatalog(gomock.Any()).Return(first, nil),
		m.EXPECT().FetchCatalog(gomock.Any()).Return(second, nil),
		m.EXPECT().FetchCatalog(gomock.Any()).Return(nil, nil),
	)

	res, err := env.catalog.SyncCatalog(ctx, "printful")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 3, res.Stored)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.NeedsReview)
	assert.EqualValues(t, 0, res.Discontinued)

	tee, err := env.catalog.GetProduct(ctx, "printful", "4012")
	require.NoError(t, err)
	assert.EqualValues(t, 4625, tee.BaseCost)
	assert.Equal(t, "M / Black", tee.Variant)
	assert.Equal(t, model.CategoryApparel, tee.Category)

	env.now = env.now.Add(time.Hour)
	res, err = env.catalog.SyncCatalog(ctx, "printful")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Discontinued)

	gone, err := env.catalog.GetProduct(ctx, "printful", "4013")
	require.NoError(t, err)
	assert.True(t, gone.Discontinued, "missing products are kept and flagged")

	// an empty feed does not wipe the catalog
	env.now = env.now.Add(time.Hour)
	res, err = env.catalog.SyncCatalog(ctx, "printful")
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Discontinued)
	tee, err = env.catalog.GetProduct(ctx, "printful", "4012")
	require.NoError(t, err)
	assert.False(t, tee.Discontinued)
}

func TestCatalogService_SyncAllDegradesPerProvider(t *testing.T) {
	env := newTestEnv(t, "printful", "prodigi", "zazzle")

	env.mock("printful").EXPECT().FetchCatalog(gomock.Any()).
		Return(nil, &apperrors.ErrProviderUnavailable{Provider: "printful", StatusCode: 503})
	env.mock("prodigi").EXPECT().FetchCatalog(gomock.Any()).Return([]provider.RawProduct{
		{SKU: "GLOBAL-CAN-A3", Name: "Canvas A3", Category: "Canvas", Cost: decimal.RequireFromString("6.92"), Currency: "GBP"},
	}, nil)

	report := env.catalog.SyncAll(context.Background())
	require.Len(t, report.Results, 2, "zazzle has no client")
	assert.Equal(t, "printful", report.Results[0].Provider)
	assert.NotEmpty(t, report.Results[0].Error)
	assert.Equal(t, "prodigi", report.Results[1].Provider)
	assert.Equal(t, 1, report.Results[1].Stored)

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "printful", report.Warnings[0].Provider)
}

func TestCatalogService_ListCatalog(t *testing.T) {
	env := newTestEnv(t, "printful", "prodigi", "customcat")
	ctx := context.Background()

	env.addProduct(t, "prodigi", "GLOBAL-CAN-A3", "Canvas A3", 4500)
	env.addProduct(t, "prodigi", "GLOBAL-POS-A2", "Poster A2", 2000)
	env.addProduct(t, "printful", "4012", "Unisex Tee", 4625)
	env.addProduct(t, "customcat", "CC-1", "Tee in testing", 3000)

	page, err := env.catalog.ListCatalog(ctx, CatalogQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total, "testing providers are not browsable by default")

	page, err = env.catalog.ListCatalog(ctx, CatalogQuery{Category: model.CategoryWallArt, Query: "canvas"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "GLOBAL-CAN-A3", page.Items[0].SKU)

	page, err = env.catalog.ListCatalog(ctx, CatalogQuery{Providers: []string{"customcat"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total, "explicit provider filter reaches testing providers")

	page, err = env.catalog.ListCatalog(ctx, CatalogQuery{Providers: []string{"prodigi"}, Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "GLOBAL-POS-A2", page.Items[0].SKU)

	_, err = env.catalog.ListCatalog(ctx, CatalogQuery{Category: "furniture"})
	var invalid *apperrors.ErrValidation
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields["category"], model.CategoryWallArt, "lists the accepted categories")

	_, err = env.catalog.GetProduct(ctx, "prodigi", "NOPE")
	assert.True(t, apperrors.IsNotFound(err))
}
