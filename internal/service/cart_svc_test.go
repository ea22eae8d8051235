package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pod_fulfillment_v1/internal/model"
	apperrors "pod_fulfillment_v1/pkg/errors"
)

func TestCartService_AddLine(t *testing.T) {
	env := newTestEnv(t, "prodigi", "customcat")
	ctx := context.Background()
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)

	t.Run("defaults to the suggested price", func(t *testing.T) {
		cart, err := env.carts.AddLine(ctx, "s1", AddLineInput{
			ProviderSlug: "prodigi",
			SKU:          "PRODIGI-CANVAS-A3",
			Copies:       1,
			DesignURL:    "https://cdn.example.com/a.png",
		})
		require.NoError(t, err)
		require.Len(t, cart.Lines, 1)
		line := cart.Lines[0]
		assert.NotEmpty(t, line.ID)
		assert.EqualValues(t, 4500, line.BaseCost)
		assert.EqualValues(t, 7000, line.SellingPrice, "50% margin loses to the 25.00 minimum profit")
		assert.Equal(t, "Canvas A3", line.Name)
	})

	t.Run("same product and design merges copies", func(t *testing.T) {
		cart := env.addLine(t, "s2", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
		cart2 := env.addLine(t, "s2", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
		require.Len(t, cart2.Lines, 1)
		assert.Equal(t, 2, cart2.Lines[0].Copies)
		assert.Equal(t, cart.Lines[0].ID, cart2.Lines[0].ID)
		assert.Len(t, cart.Lines, 1, "returned carts are copies")
	})

	t.Run("price below base cost is rejected", func(t *testing.T) {
		_, err := env.carts.AddLine(ctx, "s3", AddLineInput{
			ProviderSlug: "prodigi",
			SKU:          "PRODIGI-CANVAS-A3",
			Copies:       1,
			DesignURL:    "https://cdn.example.com/a.png",
			SellingPrice: cents(4000),
		})
		var verr *apperrors.ErrValidation
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, ReasonBelowBaseCost, verr.Message)

		cart, err := env.carts.Get("s3")
		require.NoError(t, err)
		assert.Empty(t, cart.Lines, "rejected lines are not stored")
	})

	t.Run("input errors", func(t *testing.T) {
		cases := []struct {
			name string
			in   AddLineInput
		}{
			{"missing design", AddLineInput{ProviderSlug: "prodigi", SKU: "PRODIGI-CANVAS-A3", Copies: 1}},
			{"relative design url", AddLineInput{ProviderSlug: "prodigi", SKU: "PRODIGI-CANVAS-A3", Copies: 1, DesignURL: "/tmp/a.png"}},
			{"zero copies", AddLineInput{ProviderSlug: "prodigi", SKU: "PRODIGI-CANVAS-A3", Copies: 0, DesignURL: "https://x.io/a.png"}},
			{"testing provider", AddLineInput{ProviderSlug: "customcat", SKU: "X", Copies: 1, DesignURL: "https://x.io/a.png"}},
		}
		for _, c := range cases {
			_, err := env.carts.AddLine(ctx, "s4", c.in)
			assert.True(t, apperrors.IsValidation(err), "%s: %v", c.name, err)
		}

		_, err := env.carts.AddLine(ctx, "s4", AddLineInput{ProviderSlug: "prodigi", SKU: "NOPE", Copies: 1, DesignURL: "https://x.io/a.png"})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestCartService_DiscontinuedProduct(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	cp := env.addProduct(t, "prodigi", "OLD", "Old canvas", 4500)
	require.NoError(t, env.db.Model(&model.CatalogProduct{}).Where("sku = ?", cp.SKU).Update("discontinued", true).Error)

	_, err := env.carts.AddLine(context.Background(), "s", AddLineInput{
		ProviderSlug: "prodigi", SKU: "OLD", Copies: 1, DesignURL: "https://x.io/a.png",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	env := newTestEnv(t, "prodigi")
	env.addProduct(t, "prodigi", "PRODIGI-CANVAS-A3", "Canvas A3", 4500)
	cart := env.addLine(t, "s", "prodigi", "PRODIGI-CANVAS-A3", 1, 12000)
	lineID := cart.Lines[0].ID
	before := cart.Fingerprint()

	copies := 3
	cart, err := env.carts.UpdateLine("s", lineID, UpdateLineInput{Copies: &copies})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Lines[0].Copies)
	assert.NotEqual(t, before, cart.Fingerprint())

	_, err = env.carts.UpdateLine("s", lineID, UpdateLineInput{SellingPrice: cents(6000)})
	var verr *apperrors.ErrValidation
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonBelowMinProfit, verr.Message)

	stored, err := env.carts.Get("s")
	require.NoError(t, err)
	assert.EqualValues(t, 12000, stored.Lines[0].SellingPrice, "rejected edits leave the line untouched")

	_, err = env.carts.UpdateLine("s", lineID, UpdateLineInput{})
	assert.True(t, apperrors.IsValidation(err))
	_, err = env.carts.UpdateLine("s", "missing", UpdateLineInput{Copies: &copies})
	assert.True(t, apperrors.IsNotFound(err))

	cart, err = env.carts.RemoveLine("s", lineID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	env.carts.Clear("s")
	cart, err = env.carts.Get("s")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, err = env.carts.Get("")
	assert.True(t, apperrors.IsValidation(err))
}

func TestCart_FingerprintIgnoresLineOrder(t *testing.T) {
	a := CartLine{ProviderSlug: "prodigi", SKU: "A", Copies: 1, SellingPrice: 100, BaseCost: 50, DesignURL: "https://x/a"}
	b := CartLine{ProviderSlug: "printful", SKU: "B", Copies: 2, SellingPrice: 300, BaseCost: 100, DesignURL: "https://x/b"}

	c1 := &Cart{Lines: []CartLine{a, b}}
	c2 := &Cart{Lines: []CartLine{b, a}}
	assert.Equal(t, c1.Fingerprint(), c2.Fingerprint())
	assert.Equal(t, []string{"printful", "prodigi"}, c1.Providers())

	b.Copies = 3
	c3 := &Cart{Lines: []CartLine{a, b}}
	assert.NotEqual(t, c1.Fingerprint(), c3.Fingerprint())
}
