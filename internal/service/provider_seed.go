package service

import (
	"gorm.io/datatypes"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/pkg/net"
)

// DefaultProviders is the built-in provider catalogue written by seed-providers.
// Delivery windows are business days to the destination; prices are provider base rates.
func DefaultProviders() []model.Provider {
	return []model.Provider{
		{
			Slug:           "printify",
			Name:           "Printify",
			Specialization: model.CategoryGeneral,
			Status:         model.ProviderActive,
			APIBaseURL:     "https://api.printify.com/v1",
			AuthMethod:     net.AuthBearer,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "/shops/{shop_id}/products.json",
				Shipping:    "/shops/{shop_id}/orders/shipping.json",
				Orders:      "/shops/{shop_id}/orders.json",
				OrderStatus: "/shops/{shop_id}/orders/{id}.json",
			}),
			RateLimitPerMinute: 600,
			SourceCurrency:     "USD",
			Destinations:       datatypes.JSONSlice[string]{"*"},
			DeliveryWindows:    datatypes.JSONSlice[model.DeliveryWindow]{{Country: "BR", MinDays: 15, MaxDays: 30}, {Country: "US", MinDays: 4, MaxDays: 8}},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "standard", Label: "Standard", BasePrice: 2500, MinDays: 15, MaxDays: 30},
				{ID: "express", Label: "Express", BasePrice: 6500, MinDays: 7, MaxDays: 12},
			},
			DefaultMinDays:     10,
			DefaultMaxDays:     25,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{CustomBranding: true, BulkOrders: true, Webhooks: true}),
			SuggestedMarginBps: 4000,
			MinimumProfit:      1500,
			QualityScore:       4.2,
			ReliabilityScore:   4.3,
		},
		{
			Slug:           "printful",
			Name:           "Printful",
			Specialization: model.CategoryApparel,
			Status:         model.ProviderActive,
			APIBaseURL:     "https://api.printful.com",
			AuthMethod:     net.AuthBearer,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "/products",
				Shipping:    "/shipping/rates",
				Orders:      "/orders",
				OrderStatus: "/orders/{id}",
			}),
			RateLimitPerMinute: 120,
			SourceCurrency:     "USD",
			Destinations:       datatypes.JSONSlice[string]{"*"},
			DeliveryWindows:    datatypes.JSONSlice[model.DeliveryWindow]{{Country: "BR", MinDays: 10, MaxDays: 20}, {Country: "US", MinDays: 3, MaxDays: 7}},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "STANDARD", Label: "Standard", BasePrice: 3000, MinDays: 10, MaxDays: 20},
				{ID: "EXPRESS", Label: "Express", BasePrice: 8000, MinDays: 4, MaxDays: 8},
			},
			DefaultMinDays:     7,
			DefaultMaxDays:     20,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{CustomBranding: true, BulkOrders: true, Webhooks: true}),
			SuggestedMarginBps: 4500,
			MinimumProfit:      2000,
			QualityScore:       4.7,
			ReliabilityScore:   4.6,
		},
		{
			Slug:           "gooten",
			Name:           "Gooten",
			Specialization: model.CategoryHomeDecor,
			Status:         model.ProviderActive,
			APIBaseURL:     "https://api.print.io/api",
			AuthMethod:     net.AuthNone,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "/v/5/source/api/productvariants",
				Shipping:    "/v/5/source/api/shippingprices",
				Orders:      "/v/5/source/api/orders",
				OrderStatus: "/v/5/source/api/orders",
			}),
			RateLimitPerMinute: 60,
			SourceCurrency:     "USD",
			Destinations:       datatypes.JSONSlice[string]{"US", "CA", "GB", "BR", "DE", "FR", "AU"},
			DeliveryWindows:    datatypes.JSONSlice[model.DeliveryWindow]{{Country: "BR", MinDays: 14, MaxDays: 28}},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "standard", Label: "Standard", BasePrice: 2800, MinDays: 14, MaxDays: 28},
				{ID: "expedited", Label: "Expedited", BasePrice: 5500, MinDays: 7, MaxDays: 14},
			},
			DefaultMinDays:     7,
			DefaultMaxDays:     21,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{BulkOrders: true, Webhooks: true}),
			SuggestedMarginBps: 4000,
			MinimumProfit:      1500,
			QualityScore:       4.0,
			ReliabilityScore:   4.1,
		},
		{
			Slug:           "prodigi",
			Name:           "Prodigi",
			Specialization: model.CategoryWallArt,
			Status:         model.ProviderActive,
			APIBaseURL:     "https://api.prodigi.com",
			AuthMethod:     net.AuthAPIKey,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "/v4.0/products",
				Shipping:    "/v4.0/quotes",
				Orders:      "/v4.0/orders",
				OrderStatus: "/v4.0/orders/{id}",
				AuthHeader:  "X-API-Key",
			}),
			RateLimitPerMinute: 300,
			SourceCurrency:     "GBP",
			Destinations:       datatypes.JSONSlice[string]{"*"},
			DeliveryWindows: datatypes.JSONSlice[model.DeliveryWindow]{
				{Country: "BR", MinDays: 12, MaxDays: 25},
				{Country: "GB", MinDays: 2, MaxDays: 5},
				{Country: "US", MinDays: 5, MaxDays: 10},
			},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "Budget", Label: "Budget", BasePrice: 2000, MinDays: 15, MaxDays: 30},
				{ID: "Standard", Label: "Standard", BasePrice: 3500, MinDays: 12, MaxDays: 25},
				{ID: "Express", Label: "Express", BasePrice: 9000, MinDays: 5, MaxDays: 9},
			},
			DefaultMinDays:     5,
			DefaultMaxDays:     15,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{CustomBranding: true, BulkOrders: true, Webhooks: true, IdempotentCreate: true}),
			SuggestedMarginBps: 5000,
			MinimumProfit:      2500,
			QualityScore:       4.8,
			ReliabilityScore:   4.7,
		},
		{
			Slug:           "gelato",
			Name:           "Gelato",
			Specialization: model.CategoryWallArt,
			Status:         model.ProviderActive,
			APIBaseURL:     "https://order.gelatoapis.com",
			AuthMethod:     net.AuthAPIKey,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "https://product.gelatoapis.com/v3/catalogs/posters/products:search",
				Shipping:    "/v4/orders:quote",
				Orders:      "/v4/orders",
				OrderStatus: "/v4/orders/{id}",
				AuthHeader:  "X-API-KEY",
			}),
			RateLimitPerMinute: 300,
			SourceCurrency:     "EUR",
			Destinations:       datatypes.JSONSlice[string]{"*"},
			DeliveryWindows:    datatypes.JSONSlice[model.DeliveryWindow]{{Country: "BR", MinDays: 5, MaxDays: 10}},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "normal", Label: "Standard", BasePrice: 2200, MinDays: 5, MaxDays: 10},
				{ID: "express", Label: "Express", BasePrice: 6000, MinDays: 2, MaxDays: 5},
			},
			DefaultMinDays:     3,
			DefaultMaxDays:     8,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{CustomBranding: true, Webhooks: true}),
			SuggestedMarginBps: 4500,
			MinimumProfit:      2000,
			QualityScore:       4.5,
			ReliabilityScore:   4.5,
		},
		{
			Slug:           "customcat",
			Name:           "CustomCat",
			Specialization: model.CategoryApparel,
			Status:         model.ProviderTesting,
			APIBaseURL:     "https://customcat-beta.mylocker.net/api/v1",
			AuthMethod:     net.AuthAPIKey,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "/catalog",
				Shipping:    "/shipping/rates",
				Orders:      "/order",
				OrderStatus: "/order/{id}",
			}),
			RateLimitPerMinute: 60,
			SourceCurrency:     "USD",
			Destinations:       datatypes.JSONSlice[string]{"US", "CA", "BR"},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "standard", Label: "Standard", BasePrice: 2700, MinDays: 12, MaxDays: 24},
			},
			DefaultMinDays:     12,
			DefaultMaxDays:     24,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{BulkOrders: true}),
			SuggestedMarginBps: 3500,
			MinimumProfit:      1200,
			QualityScore:       3.9,
			ReliabilityScore:   4.0,
		},
		{
			Slug:           "spod",
			Name:           "SPOD",
			Specialization: model.CategoryApparel,
			Status:         model.ProviderActive,
			APIBaseURL:     "https://rest.spod.com",
			AuthMethod:     net.AuthAPIKey,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "/articles",
				Shipping:    "/shippingTypes/quote",
				Orders:      "/orders",
				OrderStatus: "/orders/{id}",
				AuthHeader:  "X-SPOD-ACCESS-TOKEN",
			}),
			RateLimitPerMinute: 120,
			SourceCurrency:     "EUR",
			Destinations:       datatypes.JSONSlice[string]{"*"},
			DeliveryWindows:    datatypes.JSONSlice[model.DeliveryWindow]{{Country: "BR", MinDays: 10, MaxDays: 22}},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "standard", Label: "Standard", BasePrice: 2400, MinDays: 10, MaxDays: 22},
				{ID: "express", Label: "Express", BasePrice: 5800, MinDays: 5, MaxDays: 9},
			},
			DefaultMinDays:     5,
			DefaultMaxDays:     15,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{Webhooks: true, IdempotentCreate: true}),
			SuggestedMarginBps: 4000,
			MinimumProfit:      1500,
			QualityScore:       4.1,
			ReliabilityScore:   4.4,
		},
		{
			Slug:           "shineon",
			Name:           "ShineOn",
			Specialization: model.CategoryJewelry,
			Status:         model.ProviderActive,
			APIBaseURL:     "https://api.shineon.com/v1",
			AuthMethod:     net.AuthBearer,
			Endpoints: datatypes.NewJSONType(model.Endpoints{
				Catalog:     "/product_templates",
				Shipping:    "/shipping/rates",
				Orders:      "/orders",
				OrderStatus: "/orders/{id}",
			}),
			RateLimitPerMinute: 60,
			SourceCurrency:     "USD",
			Destinations:       datatypes.JSONSlice[string]{"US", "CA", "GB", "AU", "BR"},
			DeliveryWindows:    datatypes.JSONSlice[model.DeliveryWindow]{{Country: "BR", MinDays: 12, MaxDays: 26}},
			ShippingMethods: datatypes.JSONSlice[model.ShippingMethod]{
				{ID: "standard", Label: "Standard", BasePrice: 3200, MinDays: 12, MaxDays: 26},
			},
			DefaultMinDays:     5,
			DefaultMaxDays:     14,
			Capabilities:       datatypes.NewJSONType(model.Capabilities{CustomBranding: true}),
			SuggestedMarginBps: 6000,
			MinimumProfit:      3000,
			QualityScore:       4.3,
			ReliabilityScore:   4.2,
		},
		{
			Slug:           "zazzle",
			Name:           "Zazzle",
			Specialization: model.CategoryStationery,
			Status:         model.ProviderComingSoon,
			APIBaseURL:     "https://api.zazzle.com",
			AuthMethod:     net.AuthOAuth2,
			Endpoints:      datatypes.NewJSONType(model.Endpoints{}),
			SourceCurrency: "USD",
			Destinations:   datatypes.JSONSlice[string]{"US"},
			DefaultMinDays: 7,
			DefaultMaxDays: 14,
			Capabilities:   datatypes.NewJSONType(model.Capabilities{}),
			QualityScore:   4.0,
		},
		{
			Slug:           "redbubble",
			Name:           "Redbubble",
			Specialization: model.CategoryAccessories,
			Status:         model.ProviderComingSoon,
			APIBaseURL:     "https://api.redbubble.com",
			AuthMethod:     net.AuthOAuth2,
			Endpoints:      datatypes.NewJSONType(model.Endpoints{}),
			SourceCurrency: "USD",
			Destinations:   datatypes.JSONSlice[string]{"*"},
			DefaultMinDays: 7,
			DefaultMaxDays: 21,
			Capabilities:   datatypes.NewJSONType(model.Capabilities{GraphQL: true}),
			QualityScore:   3.8,
		},
	}
}
