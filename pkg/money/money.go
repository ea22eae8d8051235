// Package money holds reference-currency amounts as integer cents and the
// conversions between provider source currencies and BRL.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ReferenceCurrency is the currency every amount is normalized into.
const ReferenceCurrency = "BRL"

var hundred = decimal.NewFromInt(100)

// Cents is an amount in the reference currency, in hundredths.
type Cents int64

// FromDecimal rounds a currency amount half away from zero into cents.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// CeilDecimal rounds a currency amount up to the next cent.
func CeilDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Ceil().IntPart())
}

// Parse reads a decimal string such as "45.00".
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float is for response views only; never compute with it.
func (c Cents) Float() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Times multiplies by a line quantity.
func (c Cents) Times(n int) Cents {
	return c * Cents(n)
}

// MarkupCeil applies a percentage markup, rounded up to the cent.
func (c Cents) MarkupCeil(pct decimal.Decimal) Cents {
	factor := decimal.NewFromInt(1).Add(pct.Div(hundred))
	return CeilDecimal(c.Decimal().Mul(factor))
}

// Percent returns part/whole*100 at the given precision. A zero whole yields zero.
func Percent(part, whole Cents, places int32) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(whole)), places)
}
