package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/api/dto"
	"pod_fulfillment_v1/internal/middleware"
	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/service"
	apperrors "pod_fulfillment_v1/pkg/errors"
)

// CartStore is the session cart surface.
type CartStore interface {
	Get(sessionID string) (*service.Cart, error)
	AddLine(ctx context.Context, sessionID string, in service.AddLineInput) (*service.Cart, error)
	UpdateLine(sessionID, lineID string, in service.UpdateLineInput) (*service.Cart, error)
	RemoveLine(sessionID, lineID string) (*service.Cart, error)
	Clear(sessionID string)
}

// Quoter prices the session cart.
type Quoter interface {
	QuoteCart(ctx context.Context, sessionID string, dest model.Recipient, opts service.QuoteOptions) (*service.QuoteResult, error)
}

// CartController serves the session cart and its quotes. Amounts are
// integer centavos in the reference currency.
type CartController struct {
	carts  CartStore
	quotes Quoter
	log    *zap.Logger
}

func NewCartController(carts CartStore, quotes Quoter, log *zap.Logger) *CartController {
	return &CartController{carts: carts, quotes: quotes, log: log}
}

// Get GET /api/cart
func (c *CartController) Get(ctx *gin.Context) {
	cart, err := c.carts.Get(middleware.GetSessionID(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": cart})
}

// AddLine POST /api/cart/lines
func (c *CartController) AddLine(ctx *gin.Context) {
	var req dto.AddCartLineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	price, err := dto.ParsePrice(&req.SellingPrice)
	if err != nil {
		respondError(ctx, c.log, apperrors.NewValidation("selling_price", err.Error()))
		return
	}

	cart, err := c.carts.AddLine(ctx.Request.Context(), middleware.GetSessionID(ctx), service.AddLineInput{
		ProviderSlug: req.Provider,
		SKU:          req.SKU,
		Copies:       req.Copies,
		DesignURL:    req.DesignURL,
		SellingPrice: price,
	})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": cart})
}

// UpdateLine PATCH /api/cart/lines/:line_id
func (c *CartController) UpdateLine(ctx *gin.Context) {
	var req dto.UpdateCartLineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	price, err := dto.ParsePrice(req.SellingPrice)
	if err != nil {
		respondError(ctx, c.log, apperrors.NewValidation("selling_price", err.Error()))
		return
	}

	cart, err := c.carts.UpdateLine(middleware.GetSessionID(ctx), ctx.Param("line_id"), service.UpdateLineInput{
		Copies:       req.Copies,
		SellingPrice: price,
	})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": cart})
}

// RemoveLine DELETE /api/cart/lines/:line_id
func (c *CartController) RemoveLine(ctx *gin.Context) {
	cart, err := c.carts.RemoveLine(middleware.GetSessionID(ctx), ctx.Param("line_id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": cart})
}

// Clear DELETE /api/cart
func (c *CartController) Clear(ctx *gin.Context) {
	c.carts.Clear(middleware.GetSessionID(ctx))
	ctx.Status(http.StatusNoContent)
}

// ==================== quotes ====================

// Quote prices every provider group of the cart for the recipient. Providers
// that could not quote are reported as warnings next to the others' quotes.
// POST /api/cart/quotes
func (c *CartController) Quote(ctx *gin.Context) {
	var req dto.QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	res, err := c.quotes.QuoteCart(ctx.Request.Context(), middleware.GetSessionID(ctx), req.Recipient.ToModel(),
		service.QuoteOptions{IncludeAllMethods: req.IncludeAllMethods})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": res})
}
