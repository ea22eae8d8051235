package dto

import "pod_fulfillment_v1/internal/model"

// ==================== catalog ====================

type ListCatalogRequest struct {
	Provider            []string `form:"provider"`
	Category            string   `form:"category"`
	Query               string   `form:"q"`
	IncludeDiscontinued bool     `form:"include_discontinued"`
	Page                int      `form:"page,default=1"`
	PageSize            int      `form:"page_size,default=50"`
}

// ==================== providers ====================

type ListProvidersRequest struct {
	Specialization string `form:"specialization"`
}

type SetProviderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=inactive testing active coming_soon"`
}

// ProviderVO is the public view of a provider; connection details stay internal.
type ProviderVO struct {
	Slug             string                 `json:"slug"`
	Name             string                 `json:"name"`
	Specialization   string                 `json:"specialization"`
	Status           string                 `json:"status"`
	Destinations     []string               `json:"destinations"`
	ShippingMethods  []model.ShippingMethod `json:"shipping_methods"`
	DefaultMinDays   int                    `json:"default_min_days"`
	DefaultMaxDays   int                    `json:"default_max_days"`
	MinimumProfit    float64                `json:"minimum_profit"`
	QualityScore     float64                `json:"quality_score"`
	ReliabilityScore float64                `json:"reliability_score"`
}

func NewProviderVO(p *model.Provider) ProviderVO {
	return ProviderVO{
		Slug:             p.Slug,
		Name:             p.Name,
		Specialization:   p.Specialization,
		Status:           p.Status,
		Destinations:     p.Destinations,
		ShippingMethods:  p.ShippingMethods,
		DefaultMinDays:   p.DefaultMinDays,
		DefaultMaxDays:   p.DefaultMaxDays,
		MinimumProfit:    p.GetMinimumProfit(),
		QualityScore:     p.QualityScore,
		ReliabilityScore: p.ReliabilityScore,
	}
}
