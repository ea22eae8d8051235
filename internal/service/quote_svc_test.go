package service

import (
	"context"
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

func prodigiRates() []provider.RateOption {
	return []provider.RateOption{
		rate("budget", "Budget", "2.00", "GBP", 0, 0),
		rate("standard", "Standard", "3.00", "GBP", 0, 0),
		rate("express", "Express", "9.00", "GBP", 3, 5),
	}
}

func TestQuoteService_ProdigiCanvasToBrazil(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	ctx := context.Background()
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 2, 12000)

	env.mock("prodigi").EXPECT().
		QuoteShipping(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.RateRequest) ([]provider.RateOption, error) {
			assert.Equal(t, "BR", req.Destination.CountryCode)
			require.Len(t, req.Items, 1)
			assert.Equal(t, provider.Item{SKU: "PRODIGI-CANVAS-A3", Copies: 2, DesignURL: "https://cdn.example.com/designs/PRODIGI-CANVAS-A3.png"}, req.Items[0])
			return prodigiRates(), nil
		})

	res, err := env.quotes.QuoteCart(ctx, "s", brazil(), QuoteOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Quotes, 1, "only the default method without includeAllMethods")

	q := res.Quotes[0]
	assert.Equal(t, "Standard", q.MethodLabel)
	assert.True(t, q.Selected)
	assert.EqualValues(t, 9000, q.ItemsCost)
	assert.EqualValues(t, 24000, q.ItemsSell)
	assert.EqualValues(t, 1950, q.ShippingCost) // 3.00 GBP at 6.50
	assert.EqualValues(t, 2145, q.ShippingSell)
	assert.GreaterOrEqual(t, q.ShippingSell, q.ShippingCost)
	assert.Equal(t, q.ItemsSell+q.ShippingSell, q.Total)
	assert.Equal(t, q.Total-q.ItemsCost-q.ShippingCost, q.Profit)
	assert.EqualValues(t, 15195, q.Profit)
	assert.Equal(t, "58.12", q.MarginPct.StringFixed(2))
	assert.Equal(t, 12, q.MinDays)
	assert.Equal(t, 25, q.MaxDays)
	assert.Equal(t, env.now.AddDate(0, 0, 12), q.EstimatedFrom)
	assert.Equal(t, env.now.AddDate(0, 0, 25), q.EstimatedTo)
	assert.Equal(t, "3", q.ShippingSourceCost)
	assert.Equal(t, "GBP", q.ShippingSourceCurrency)
	assert.Equal(t, "6.5", q.FxRate)
	assert.Equal(t, "BR", q.DestinationCountry)

	issued, err := env.quotes.GetIssued(q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, issued.ID)
}

func TestQuoteService_IncludeAllMethods(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	cart := env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 2, 12000)
	env.mock("prodigi").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).Return(prodigiRates(), nil)

	res, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{IncludeAllMethods: true})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 3)

	var selected []string
	for _, q := range res.Quotes {
		if q.Selected {
			selected = append(selected, q.MethodLabel)
		}
		assert.Equal(t, q.Total-q.ItemsCost-q.ShippingCost, q.Profit)
	}
	assert.Equal(t, []string{"Standard"}, selected)

	budget := res.Quotes[0]
	assert.Equal(t, "Budget", budget.MethodLabel)
	assert.Equal(t, 15, budget.MinDays, "profile method ahead of the destination window")
	assert.Equal(t, 30, budget.MaxDays)

	express := res.Quotes[2]
	assert.Equal(t, "Express", express.MethodLabel)
	assert.Equal(t, 3, express.MinDays, "live delivery days win over the profile")
	assert.Equal(t, 5, express.MaxDays)
}

func TestQuoteService_DeliveryDaysPerMethod(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	cart := env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
	env.mock("prodigi").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).Return([]provider.RateOption{
		rate("budget", "Budget", "2.00", "GBP", 0, 0),
		rate("standard", "Standard", "3.00", "GBP", 0, 0),
		rate("express", "Express", "9.00", "GBP", 0, 0),
		rate("courier", "Courier", "15.00", "GBP", 0, 0),
	}, nil)

	res, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{IncludeAllMethods: true})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 4)

	days := make(map[string][2]int)
	for _, q := range res.Quotes {
		days[q.MethodLabel] = [2]int{q.MinDays, q.MaxDays}
	}
	assert.Equal(t, [2]int{15, 30}, days["Budget"])
	assert.Equal(t, [2]int{12, 25}, days["Standard"])
	assert.Equal(t, [2]int{5, 9}, days["Express"])
	assert.Equal(t, [2]int{12, 25}, days["Courier"], "method outside the profile uses the BR window")
}

func TestQuoteService_DefaultsToFirstMethodWithoutStandard(t *testing.T) {
	env := newTestEnv(t, "printful")
	env.addProduct(t, "printful", "4012", "Unisex Tee", 4625)
	cart := env.addLine(t, "s", "printful", "4012", 1, 9000)
	env.mock("printful").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).Return([]provider.RateOption{
		rate("STANDARD_ECONOMY", "Economy", "4.39", "USD", 0, 0),
		rate("EXPRESS", "Express", "12.00", "USD", 2, 4),
	}, nil)

	res, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 1)
	assert.Equal(t, "Economy", res.Quotes[0].MethodLabel)
	assert.EqualValues(t, 2195, res.Quotes[0].ShippingCost)
	// no live days: destination window
	assert.Equal(t, 10, res.Quotes[0].MinDays)
	assert.Equal(t, 20, res.Quotes[0].MaxDays)
}

func TestQuoteService_PartialResults(t *testing.T) {
	env := newTestEnv(t, "prodigi", "printful", "gooten")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	env.addProduct(t, "printful", "4012", "Unisex Tee", 4625)
	env.addProduct(t, "gooten", "MUG-11", "Mug 11oz", 2500)
	env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
	env.addLine(t, "s", "printful", "4012", 1, 9000)
	env.addLine(t, "s", "gooten", "MUG-11", 1, 6000)

	env.mock("prodigi").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).Return(prodigiRates(), nil)
	env.mock("printful").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).
		Return(nil, &apperrors.ErrProviderUnavailable{Provider: "printful", StatusCode: 503})
	// gooten does not serve JP and is never called

	dest := brazil()
	dest.CountryCode = "jp"
	res, err := env.quotes.QuoteCart(context.Background(), "s", dest, QuoteOptions{})
	require.NoError(t, err)

	require.Len(t, res.Quotes, 1)
	assert.Equal(t, "prodigi", res.Quotes[0].Provider)
	assert.Equal(t, 12, res.Quotes[0].MinDays, "Standard profile days apply to any destination")

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, "gooten", res.Warnings[0].Provider)
	assert.Contains(t, res.Warnings[0].Reason, "JP")
	assert.Equal(t, "printful", res.Warnings[1].Provider)
	assert.Contains(t, res.Warnings[1].Reason, "try again")
}

func TestQuoteService_DiscontinuedSKUSkipsProvider(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	cart := env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
	require.NoError(t, env.db.Model(&model.CatalogProduct{}).Where("sku = ?", "PRODIGI-CANVAS-A3").Update("discontinued", true).Error)

	res, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Quotes)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Reason, "discontinued")
}

func TestQuoteService_UnknownCurrencyOptionsAreDropped(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	cart := env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
	env.mock("prodigi").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).Return([]provider.RateOption{
		rate("standard", "Standard", "500", "JPY", 0, 0),
	}, nil)

	res, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Quotes)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "prodigi", res.Warnings[0].Provider)
}

func TestQuoteService_InputErrors(t *testing.T) {
	env := newTestEnv(t, "prodigi")

	_, err := env.quotes.QuoteCart(context.Background(), "empty", brazil(), QuoteOptions{})
	assert.True(t, apperrors.IsValidation(err))

	lines := []CartLine{{ProviderSlug: "prodigi", SKU: "X", Copies: 1, SellingPrice: 100, BaseCost: 50}}
	_, err = env.quotes.Quote(context.Background(), lines, model.Recipient{}, QuoteOptions{})
	assert.True(t, apperrors.IsValidation(err))

	_, err = env.quotes.GetIssued("nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestQuoteService_RequoteIsStable(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	cart := env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 2, 12000)
	env.mock("prodigi").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).Return(prodigiRates(), nil).Times(2)

	first, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{IncludeAllMethods: true})
	require.NoError(t, err)
	second, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{IncludeAllMethods: true})
	require.NoError(t, err)

	require.Len(t, second.Quotes, len(first.Quotes))
	for i := range first.Quotes {
		a, b := first.Quotes[i], second.Quotes[i]
		assert.NotEqual(t, a.ID, b.ID, "every quote is a new issue")
		assert.Equal(t, a.ItemsCost, b.ItemsCost)
		assert.Equal(t, a.ItemsSell, b.ItemsSell)
		assert.Equal(t, a.MinDays, b.MinDays)
		assert.Equal(t, a.MaxDays, b.MaxDays)
		assert.Equal(t, a.ShippingCost, b.ShippingCost)
		assert.Equal(t, a.CartFingerprint, b.CartFingerprint)
	}
}

func TestQuoteService_IssuedQuotesExpire(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	cart := env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
	env.mock("prodigi").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).Return(prodigiRates(), nil)

	clock := time.Now()
	env.quotes.issued.WithClock(func() time.Time { return clock })
	res, err := env.quotes.Quote(context.Background(), cart.Lines, brazil(), QuoteOptions{})
	require.NoError(t, err)
	id := res.Quotes[0].ID

	_, err = env.quotes.GetIssued(id)
	require.NoError(t, err)

	clock = clock.Add(31 * time.Minute)
	_, err = env.quotes.GetIssued(id)
	assert.True(t, apperrors.IsNotFound(err))
}

// Quote arithmetic is cent-exact for any cart and shipping rate.
func TestQuoteService_ProfitIdentity(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	env.addProduct(t, "prodigi", "GLOBAL-POS-A2", "Poster A2", 2000)

	var shipping decimal.Decimal
	env.mock("prodigi").EXPECT().QuoteShipping(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, provider.RateRequest) ([]provider.RateOption, error) {
			return []provider.RateOption{{MethodID: "standard", Label: "Standard", Cost: shipping, Currency: "GBP"}}, nil
		}).AnyTimes()

	rapid.Check(t, func(rt *rapid.T) {
		shipping = decimal.New(rapid.Int64Range(0, 20_000).Draw(rt, "shipping"), -2)
		lines := []CartLine{
			{ProviderSlug: "prodigi", SKU: "PRODIGI-CANVAS-A3", BaseCost: 4500,
				Copies:       rapid.IntRange(1, 50).Draw(rt, "copiesA"),
				SellingPrice: money.Cents(rapid.Int64Range(7000, 100_000).Draw(rt, "sellA"))},
			{ProviderSlug: "prodigi", SKU: "GLOBAL-POS-A2", BaseCost: 2000,
				Copies:       rapid.IntRange(1, 50).Draw(rt, "copiesB"),
				SellingPrice: money.Cents(rapid.Int64Range(4500, 100_000).Draw(rt, "sellB"))},
		}

		res, err := env.quotes.Quote(context.Background(), lines, brazil(), QuoteOptions{})
		if err != nil || len(res.Quotes) != 1 {
			rt.Fatalf("quote failed: %v %+v", err, res)
		}
		q := res.Quotes[0]

		if q.Profit != q.Total-q.ItemsCost-q.ShippingCost {
			rt.Fatalf("profit %s != %s - %s - %s", q.Profit, q.Total, q.ItemsCost, q.ShippingCost)
		}
		if q.Total != q.ItemsSell+q.ShippingSell {
			rt.Fatalf("total %s != %s + %s", q.Total, q.ItemsSell, q.ShippingSell)
		}
		if q.ShippingSell < q.ShippingCost {
			rt.Fatalf("shipping sold below cost: %s < %s", q.ShippingSell, q.ShippingCost)
		}
		exact := q.Profit.Decimal().Mul(decimal.NewFromInt(100)).Div(q.Total.Decimal())
		if exact.Sub(q.MarginPct).Abs().GreaterThan(decimal.RequireFromString("0.005")) {
			rt.Fatalf("margin %s far from %s", q.MarginPct, exact)
		}
	})
}
