package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/api/dto"
	"pod_fulfillment_v1/internal/model"
)

// ProviderDirectory is the part of the registry the HTTP layer reads.
type ProviderDirectory interface {
	ListActiveProviders(specialization string) []model.Provider
	ListProviders() []model.Provider
	GetProvider(slug string) (*model.Provider, error)
	SetStatus(ctx context.Context, slug, status string) error
	Reload(ctx context.Context) error
}

type ProviderController struct {
	registry ProviderDirectory
	log      *zap.Logger
}

func NewProviderController(registry ProviderDirectory, log *zap.Logger) *ProviderController {
	return &ProviderController{registry: registry, log: log}
}

// List returns active providers, optionally filtered by specialization.
// GET /api/providers
func (c *ProviderController) List(ctx *gin.Context) {
	var req dto.ListProvidersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": toProviderVOs(c.registry.ListActiveProviders(req.Specialization))})
}

// Detail GET /api/providers/:slug
func (c *ProviderController) Detail(ctx *gin.Context) {
	p, err := c.registry.GetProvider(ctx.Param("slug"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": dto.NewProviderVO(p)})
}

// ==================== admin ====================

// ListAll returns every provider regardless of status.
// GET /api/admin/providers
func (c *ProviderController) ListAll(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"data": toProviderVOs(c.registry.ListProviders())})
}

// SetStatus PUT /api/admin/providers/:slug/status
func (c *ProviderController) SetStatus(ctx *gin.Context) {
	var req dto.SetProviderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	slug := ctx.Param("slug")
	if err := c.registry.SetStatus(ctx.Request.Context(), slug, req.Status); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	c.log.Info("provider status changed", zap.String("provider", slug), zap.String("status", req.Status))
	ctx.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// Reload re-reads provider configuration from the database.
// POST /api/admin/providers/reload
func (c *ProviderController) Reload(ctx *gin.Context) {
	if err := c.registry.Reload(ctx.Request.Context()); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "reloaded"})
}

func toProviderVOs(providers []model.Provider) []dto.ProviderVO {
	list := make([]dto.ProviderVO, 0, len(providers))
	for i := range providers {
		list = append(list, dto.NewProviderVO(&providers[i]))
	}
	return list
}
