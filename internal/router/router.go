package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pod_fulfillment_v1/internal/controller"
	"pod_fulfillment_v1/internal/middleware"
)

// Controllers groups everything InitRoutes mounts.
type Controllers struct {
	Providers *controller.ProviderController
	Catalog   *controller.CatalogController
	Cart      *controller.CartController
	Orders    *controller.OrderController
	Admin     *controller.AdminController
}

// Options carries the throttles of provider-hitting endpoints.
type Options struct {
	AdminKey        string
	RefreshInterval time.Duration
	SyncInterval    time.Duration
}

// InitRoutes registers every route.
func InitRoutes(r *gin.Engine, ctl Controllers, limiter *middleware.CooldownLimiter, opts Options) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// public browse
		providers := api.Group("/providers")
		{
			providers.GET("", ctl.Providers.List)
			providers.GET("/:slug", ctl.Providers.Detail)
		}
		catalog := api.Group("/catalog")
		{
			catalog.GET("", ctl.Catalog.List)
			catalog.GET("/:provider/:sku", ctl.Catalog.Detail)
		}

		// session cart
		cart := api.Group("/cart", middleware.RequireSession())
		{
			cart.GET("", ctl.Cart.Get)
			cart.DELETE("", ctl.Cart.Clear)
			cart.POST("/lines", ctl.Cart.AddLine)
			cart.PATCH("/lines/:line_id", ctl.Cart.UpdateLine)
			cart.DELETE("/lines/:line_id", ctl.Cart.RemoveLine)
			cart.POST("/quotes", ctl.Cart.Quote)
		}

		orders := api.Group("/orders", middleware.RequireUser())
		{
			orders.POST("", middleware.RequireSession(), ctl.Orders.Create)
			orders.GET("", ctl.Orders.List)
			orders.GET("/number/:number", ctl.Orders.ByNumber)
			orders.GET("/:id", ctl.Orders.Detail)
			orders.POST("/:id/refresh",
				middleware.Cooldown(limiter, middleware.ActionOrderRefresh, "id", opts.RefreshInterval),
				ctl.Orders.Refresh,
			)
		}

		admin := api.Group("/admin", middleware.RequireAdmin(opts.AdminKey))
		{
			admin.GET("/providers", ctl.Providers.ListAll)
			admin.PUT("/providers/:slug/status", ctl.Providers.SetStatus)
			admin.POST("/providers/reload", ctl.Providers.Reload)
			admin.POST("/catalog/sync",
				middleware.Cooldown(limiter, middleware.ActionCatalogSync, "provider", opts.SyncInterval),
				ctl.Catalog.Sync,
			)
			admin.POST("/tracking/refresh", ctl.Admin.RefreshTracking)
			admin.GET("/tasks", ctl.Admin.Tasks)
		}
	}
}
