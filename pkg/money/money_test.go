package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseAndString(t *testing.T) {
	c, err := Parse("45.00")
	require.NoError(t, err)
	assert.Equal(t, Cents(4500), c)
	assert.Equal(t, "45.00", c.String())

	c, err = Parse("0.005")
	require.NoError(t, err)
	assert.Equal(t, Cents(1), c, "half rounds away from zero")

	_, err = Parse("abc")
	assert.Error(t, err)
}

func TestMarkupCeil(t *testing.T) {
	// 40.00 + 15% = 46.00
	assert.Equal(t, Cents(4600), Cents(4000).MarkupCeil(decimal.NewFromInt(15)))
	// 12.35 * 1.10 = 13.585 -> 13.59
	assert.Equal(t, Cents(1359), Cents(1235).MarkupCeil(decimal.NewFromInt(10)))
	// 10.01 * 1.10 = 11.011 -> 11.02
	assert.Equal(t, Cents(1102), Cents(1001).MarkupCeil(decimal.NewFromInt(10)))
	assert.Equal(t, Cents(500), Cents(500).MarkupCeil(decimal.Zero))
}

func TestPercent(t *testing.T) {
	p := Percent(1500, 6000, 4)
	assert.True(t, p.Equal(decimal.NewFromInt(25)), "got %s", p)
	assert.True(t, Percent(10, 0, 4).IsZero())
}

func TestRates(t *testing.T) {
	rates, err := ParseRates(map[string]string{"usd": "5.10", "EUR": "5.60"})
	require.NoError(t, err)

	brl, rate, err := rates.Convert(decimal.RequireFromString("10.00"), "USD")
	require.NoError(t, err)
	assert.Equal(t, Cents(5100), brl)
	assert.Equal(t, "5.1", rate.String())

	brl, _, err = rates.Convert(decimal.RequireFromString("12.34"), "")
	require.NoError(t, err)
	assert.Equal(t, Cents(1234), brl)

	_, _, err = rates.Convert(decimal.NewFromInt(1), "GBP")
	var unknown *ErrUnknownCurrency
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "GBP", unknown.Currency)

	assert.Equal(t, []string{"BRL", "EUR", "USD"}, rates.Currencies())

	_, err = ParseRates(map[string]string{"USD": "-1"})
	assert.Error(t, err)
}

func TestMarkupNeverLowersAmount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := Cents(rapid.Int64Range(0, 10_000_000).Draw(t, "base"))
		pct := decimal.NewFromInt(rapid.Int64Range(0, 300).Draw(t, "pct"))

		got := base.MarkupCeil(pct)
		if got < base {
			t.Fatalf("MarkupCeil(%s, %s) = %s, below base", base, pct, got)
		}
		exact := base.Decimal().Mul(decimal.NewFromInt(100).Add(pct)).Div(decimal.NewFromInt(100))
		if got.Decimal().LessThan(exact) {
			t.Fatalf("MarkupCeil(%s, %s) = %s, below exact %s", base, pct, got, exact)
		}
	})
}
