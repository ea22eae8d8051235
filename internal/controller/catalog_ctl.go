package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/api/dto"
	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/service"
)

// CatalogBrowser is the catalog surface used over HTTP.
type CatalogBrowser interface {
	ListCatalog(ctx context.Context, q service.CatalogQuery) (*service.CatalogPage, error)
	GetProduct(ctx context.Context, slug, sku string) (*model.CatalogProduct, error)
	SyncCatalog(ctx context.Context, slug string) (*service.SyncResult, error)
	SyncAll(ctx context.Context) *service.SyncReport
}

type CatalogController struct {
	catalog CatalogBrowser
	log     *zap.Logger
}

func NewCatalogController(catalog CatalogBrowser, log *zap.Logger) *CatalogController {
	return &CatalogController{catalog: catalog, log: log}
}

// List GET /api/catalog?provider=prodigi&provider=printful&category=&q=
func (c *CatalogController) List(ctx *gin.Context) {
	var req dto.ListCatalogRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	page, err := c.catalog.ListCatalog(ctx.Request.Context(), service.CatalogQuery{
		Providers:           req.Provider,
		Category:            req.Category,
		Query:               req.Query,
		IncludeDiscontinued: req.IncludeDiscontinued,
		Page:                req.Page,
		PageSize:            req.PageSize,
	})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": page})
}

// Detail GET /api/catalog/:provider/:sku
func (c *CatalogController) Detail(ctx *gin.Context) {
	p, err := c.catalog.GetProduct(ctx.Request.Context(), ctx.Param("provider"), ctx.Param("sku"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": p})
}

// Sync refreshes one provider's snapshot, or every provider without ?provider.
// POST /api/admin/catalog/sync
func (c *CatalogController) Sync(ctx *gin.Context) {
	if slug := ctx.Query("provider"); slug != "" {
		res, err := c.catalog.SyncCatalog(ctx.Request.Context(), slug)
		if err != nil {
			respondError(ctx, c.log, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": res})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": c.catalog.SyncAll(ctx.Request.Context())})
}
