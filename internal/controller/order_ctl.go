package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/api/dto"
	"pod_fulfillment_v1/internal/middleware"
	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/repository"
	"pod_fulfillment_v1/internal/service"
	apperrors "pod_fulfillment_v1/pkg/errors"
)

// OrderPlacer creates and reads orders.
type OrderPlacer interface {
	PlaceCartOrder(ctx context.Context, userID, sessionID string, quoteIDs []string, recipient model.Recipient) (*model.Order, error)
	GetOrder(ctx context.Context, userID string, id int64) (*model.Order, error)
	GetOrderByNumber(ctx context.Context, userID, number string) (*model.Order, error)
	ListEvents(ctx context.Context, userID string, id int64) ([]model.OrderStatusEvent, error)
}

// OrderTracker lists orders and pulls fresh provider status.
type OrderTracker interface {
	ListOrders(ctx context.Context, userID string, filter repository.OrderFilter) (*service.OrderPage, error)
	RefreshOrder(ctx context.Context, userID string, orderID int64) (*model.Order, error)
}

type OrderController struct {
	orders   OrderPlacer
	tracking OrderTracker
	log      *zap.Logger
}

func NewOrderController(orders OrderPlacer, tracking OrderTracker, log *zap.Logger) *OrderController {
	return &OrderController{orders: orders, tracking: tracking, log: log}
}

// ==================== placement ====================

// Create places the session cart with the chosen quotes.
// 201 when every provider accepted, 207 when only some did.
// POST /api/orders
func (c *OrderController) Create(ctx *gin.Context) {
	var req dto.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	order, err := c.orders.PlaceCartOrder(ctx.Request.Context(),
		middleware.GetUserID(ctx), middleware.GetSessionID(ctx), req.QuoteIDs, req.Recipient.ToModel())

	var partial *apperrors.PartialOrderFailure
	switch {
	case err == nil:
		ctx.JSON(http.StatusCreated, gin.H{"data": dto.NewOrderDetail(order, nil)})
	case errors.As(err, &partial) && order != nil:
		c.log.Warn("order partially placed",
			zap.String("order_number", partial.OrderNumber),
			zap.Any("outcomes", partial.Outcomes),
		)
		ctx.JSON(http.StatusMultiStatus, gin.H{
			"error": partial.Error(),
			"data": dto.PartialOrderResponse{
				Order:    dto.NewOrderDetail(order, nil),
				Outcomes: partial.Outcomes,
			},
		})
	default:
		status, body := errorBody(err)
		if order != nil {
			// stored as failed so it can be remediated
			body["order_number"] = order.OrderNumber
		}
		if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
			c.log.Error("order placement failed", zap.Error(err))
		}
		ctx.JSON(status, body)
	}
}

// ==================== queries ====================

// List GET /api/orders?status=&needs_remediation=&page=&page_size=
func (c *OrderController) List(ctx *gin.Context) {
	var req dto.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.tracking.ListOrders(ctx.Request.Context(), middleware.GetUserID(ctx), repository.OrderFilter{
		Status:           req.Status,
		NeedsRemediation: req.NeedsRemediation,
		Page:             req.Page,
		PageSize:         req.PageSize,
	})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}

	list := make([]dto.OrderListItem, len(page.Items))
	for i := range page.Items {
		list[i] = dto.NewOrderListItem(&page.Items[i])
	}
	ctx.JSON(http.StatusOK, gin.H{"data": dto.ListOrdersResponse{Total: page.Total, List: list}})
}

// Detail returns the order with its sub-orders, shipments and audit trail.
// GET /api/orders/:id
func (c *OrderController) Detail(ctx *gin.Context) {
	id, ok := orderID(ctx)
	if !ok {
		return
	}
	userID := middleware.GetUserID(ctx)

	order, err := c.orders.GetOrder(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	events, err := c.orders.ListEvents(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": dto.NewOrderDetail(order, events)})
}

// ByNumber GET /api/orders/number/:number
func (c *OrderController) ByNumber(ctx *gin.Context) {
	order, err := c.orders.GetOrderByNumber(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("number"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": dto.NewOrderDetail(order, nil)})
}

// ==================== tracking ====================

// Refresh pulls provider status for one order now.
// POST /api/orders/:id/refresh
func (c *OrderController) Refresh(ctx *gin.Context) {
	id, ok := orderID(ctx)
	if !ok {
		return
	}
	order, err := c.tracking.RefreshOrder(ctx.Request.Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": dto.NewOrderDetail(order, nil)})
}

func orderID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}
