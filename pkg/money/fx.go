package money

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rates maps an ISO currency code to how many BRL one unit buys.
type Rates map[string]decimal.Decimal

// ErrUnknownCurrency is returned when no rate is configured for a currency.
type ErrUnknownCurrency struct {
	Currency string
}

func (e *ErrUnknownCurrency) Error() string {
	return fmt.Sprintf("no exchange rate configured for %s", e.Currency)
}

// ParseRates builds a rate table from config strings, e.g. {"USD": "5.10"}.
func ParseRates(raw map[string]string) (Rates, error) {
	rates := make(Rates, len(raw)+1)
	for code, value := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("fx rate %s: %w", code, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("fx rate %s must be positive", code)
		}
		rates[strings.ToUpper(code)] = d
	}
	rates[ReferenceCurrency] = decimal.NewFromInt(1)
	return rates, nil
}

// Rate returns the BRL rate for a currency. An empty code means BRL.
func (r Rates) Rate(currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" || code == ReferenceCurrency {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := r[code]
	if !ok {
		return decimal.Zero, &ErrUnknownCurrency{Currency: code}
	}
	return rate, nil
}

// Convert turns a source-currency amount into BRL cents and reports the rate used.
func (r Rates) Convert(amount decimal.Decimal, currency string) (Cents, decimal.Decimal, error) {
	rate, err := r.Rate(currency)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return FromDecimal(amount.Mul(rate)), rate, nil
}

// Currencies lists the configured codes, sorted.
func (r Rates) Currencies() []string {
	codes := make([]string, 0, len(r))
	for code := range r {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
