package dto

import "pod_fulfillment_v1/pkg/money"

// ==================== cart ====================

// AddCartLineRequest adds a product to the session cart. Prices are BRL
// decimal strings; an empty selling price uses the suggested price.
type AddCartLineRequest struct {
	Provider     string `json:"provider" binding:"required"`
	SKU          string `json:"sku" binding:"required"`
	Copies       int    `json:"copies" binding:"required,min=1"`
	DesignURL    string `json:"design_url" binding:"required"`
	SellingPrice string `json:"selling_price"`
}

type UpdateCartLineRequest struct {
	Copies       *int    `json:"copies"`
	SellingPrice *string `json:"selling_price"`
}

// ParsePrice reads an optional BRL amount such as "120.00".
func ParsePrice(raw *string) (*money.Cents, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	c, err := money.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ==================== quotes ====================

type QuoteRequest struct {
	Recipient         RecipientRequest `json:"recipient"`
	IncludeAllMethods bool             `json:"include_all_methods"`
}
