package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pod_fulfillment_v1/internal/model"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/money"
)

// Rejection reasons surfaced to the caller.
const (
	ReasonBelowBaseCost   = "selling price below base cost"
	ReasonNoProfit        = "selling price must exceed base cost"
	ReasonBelowMinProfit  = "profit below provider minimum"
	ReasonInvalidQuantity = "copies must be at least 1"
)

// PricingPolicy is the platform margin policy, read once from config.
// Percentages are whole numbers: 30 means 30%.
type PricingPolicy struct {
	MinimumMarginPct  decimal.Decimal
	ShippingMarkupPct decimal.Decimal
}

// ==================== PricingGuard ====================

// PricingGuard accepts or rejects selling prices. It runs on every cart
// add/edit and again right before order placement.
type PricingGuard struct {
	policy PricingPolicy
}

func NewPricingGuard(policy PricingPolicy) *PricingGuard {
	return &PricingGuard{policy: policy}
}

// Validate checks one line price against its base cost and the provider's minimum profit.
func (g *PricingGuard) Validate(p *model.Provider, sellingPrice, baseCost money.Cents) error {
	switch {
	case sellingPrice < baseCost:
		return apperrors.NewValidation("selling_price", ReasonBelowBaseCost)
	case sellingPrice == baseCost:
		return apperrors.NewValidation("selling_price", ReasonNoProfit)
	}
	if p != nil && p.MinimumProfit > 0 && sellingPrice-baseCost < p.MinimumProfit {
		return &apperrors.ErrValidation{
			Message: ReasonBelowMinProfit,
			Fields: map[string]string{
				"selling_price": fmt.Sprintf("%s: minimum profit is %s %s", ReasonBelowMinProfit, money.ReferenceCurrency, p.MinimumProfit),
			},
		}
	}
	return nil
}

// ValidateLine also checks the quantity.
func (g *PricingGuard) ValidateLine(p *model.Provider, copies int, sellingPrice, baseCost money.Cents) error {
	if copies < 1 {
		return apperrors.NewValidation("copies", ReasonInvalidQuantity)
	}
	return g.Validate(p, sellingPrice, baseCost)
}

// MarginFloor is the margin applied to suggested prices: the provider's
// suggestion, never below the platform minimum.
func (g *PricingGuard) MarginFloor(p *model.Provider) decimal.Decimal {
	floor := g.policy.MinimumMarginPct
	if p == nil {
		return floor
	}
	suggested := decimal.New(int64(p.SuggestedMarginBps), -2)
	if suggested.GreaterThan(floor) {
		return suggested
	}
	return floor
}

// SuggestedPrice derives a selling price from base cost. The result always
// clears the minimum margin, the provider minimum profit, and the strict
// profit rule.
func (g *PricingGuard) SuggestedPrice(p *model.Provider, baseCost money.Cents) money.Cents {
	price := baseCost.MarkupCeil(g.MarginFloor(p))
	if p != nil && baseCost+p.MinimumProfit > price {
		price = baseCost + p.MinimumProfit
	}
	if price <= baseCost {
		price = baseCost + 1
	}
	return price
}

// ShippingSell applies the shipping markup, rounded up so it never undercuts cost.
func (g *PricingGuard) ShippingSell(cost money.Cents) money.Cents {
	return cost.MarkupCeil(g.policy.ShippingMarkupPct)
}
