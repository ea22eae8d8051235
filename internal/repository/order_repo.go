package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pod_fulfillment_v1/internal/model"
)

// ==================== filters ====================

// OrderFilter order list filter
type OrderFilter struct {
	UserID           string
	Status           string
	NeedsRemediation *bool
	Page             int
	PageSize         int
}

// TrackingUpdate is everything one status refresh changed; written in one transaction.
type TrackingUpdate struct {
	Order        *model.Order
	OrderChanged bool
	SubOrders    []*model.SubOrder
	NewShipments []*model.Shipment
	Shipments    []*model.Shipment // existing, changed
	Events       []model.OrderStatusEvent
}

// IsEmpty reports whether there is nothing to write.
func (u *TrackingUpdate) IsEmpty() bool {
	return !u.OrderChanged && len(u.SubOrders) == 0 && len(u.NewShipments) == 0 &&
		len(u.Shipments) == 0 && len(u.Events) == 0
}

// ==================== OrderRepository ====================

// OrderRepository stores unified orders with their items, sub-orders and shipments
type OrderRepository interface {
	CreateWithItems(ctx context.Context, order *model.Order) error
	FinalizePlacement(ctx context.Context, order *model.Order, events []model.OrderStatusEvent) error
	ApplyTracking(ctx context.Context, update TrackingUpdate) error

	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)

	// polling
	ListRefreshable(ctx context.Context, afterID int64, limit int) ([]int64, error)
	ListEvents(ctx context.Context, orderID int64) ([]model.OrderStatusEvent, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates the order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateWithItems persists the order, its sub-orders and items atomically.
// Items are linked to the sub-order of their provider.
func (r *orderRepository) CreateWithItems(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		subByProvider := make(map[string]int64, len(order.SubOrders))
		for i := range order.SubOrders {
			sub := &order.SubOrders[i]
			sub.OrderID = order.ID
			if err := tx.Omit(clause.Associations).Create(sub).Error; err != nil {
				return fmt.Errorf("create sub-order %s: %w", sub.ProviderSlug, err)
			}
			subByProvider[sub.ProviderSlug] = sub.ID
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			item.SubOrderID = subByProvider[item.ProviderSlug]
		}
		if len(order.Items) > 0 {
			if err := tx.Create(&order.Items).Error; err != nil {
				return fmt.Errorf("create items: %w", err)
			}
		}

		return tx.Create(&model.OrderStatusEvent{
			OrderID:  order.ID,
			Kind:     model.EventCreated,
			ToStatus: order.Status,
			Detail:   order.OrderNumber,
		}).Error
	})
}

// FinalizePlacement records the outcome of every provider call and the aggregate status.
func (r *orderRepository) FinalizePlacement(ctx context.Context, order *model.Order, events []model.OrderStatusEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"status":            order.Status,
			"needs_remediation": order.NeedsRemediation,
			"failure_reason":    order.FailureReason,
		}).Error
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		for i := range order.SubOrders {
			sub := &order.SubOrders[i]
			if err := updateSubOrder(tx, sub); err != nil {
				return err
			}
		}
		return createEvents(tx, events)
	})
}

// ApplyTracking writes one refresh result.
func (r *orderRepository) ApplyTracking(ctx context.Context, u TrackingUpdate) error {
	if u.IsEmpty() {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if u.OrderChanged {
			err := tx.Model(&model.Order{}).Where("id = ?", u.Order.ID).
				Updates(map[string]interface{}{
					"status":            u.Order.Status,
					"needs_remediation": u.Order.NeedsRemediation,
					"failure_reason":    u.Order.FailureReason,
				}).Error
			if err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
		}
		for _, sub := range u.SubOrders {
			if err := updateSubOrder(tx, sub); err != nil {
				return err
			}
		}
		for _, sh := range u.NewShipments {
			if err := tx.Create(sh).Error; err != nil {
				return fmt.Errorf("create shipment: %w", err)
			}
		}
		for _, sh := range u.Shipments {
			err := tx.Model(&model.Shipment{}).Where("id = ?", sh.ID).Updates(map[string]interface{}{
				"carrier":         sh.Carrier,
				"service":         sh.Service,
				"tracking_number": sh.TrackingNumber,
				"tracking_url":    sh.TrackingURL,
				"status":          sh.Status,
				"shipped_at":      sh.ShippedAt,
				"delivered_at":    sh.DeliveredAt,
			}).Error
			if err != nil {
				return fmt.Errorf("update shipment %d: %w", sh.ID, err)
			}
		}
		return createEvents(tx, u.Events)
	})
}

func updateSubOrder(tx *gorm.DB, sub *model.SubOrder) error {
	err := tx.Model(&model.SubOrder{}).Where("id = ?", sub.ID).Updates(map[string]interface{}{
		"placement":         sub.Placement,
		"provider_order_id": sub.ProviderOrderID,
		"attempts":          sub.Attempts,
		"error":             sub.Error,
		"status":            sub.Status,
		"provider_status":   sub.ProviderStatus,
	}).Error
	if err != nil {
		return fmt.Errorf("update sub-order %d: %w", sub.ID, err)
	}
	return nil
}

func createEvents(tx *gorm.DB, events []model.OrderStatusEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := tx.Create(&events).Error; err != nil {
		return fmt.Errorf("create status events: %w", err)
	}
	return nil
}

func (r *orderRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("SubOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("SubOrders.Shipments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := r.preloaded(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	var order model.Order
	if err := r.preloaded(ctx).Where("order_number = ?", number).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Order{})

	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.NeedsRemediation != nil {
		db = db.Where("needs_remediation = ?", *filter.NeedsRemediation)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("SubOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("SubOrders.Shipments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&orders).Error

	return orders, total, err
}

// ListRefreshable returns ids of orders that still have a sub-order worth
// polling, ascending from afterID. Callers page through with the last id seen.
func (r *orderRepository) ListRefreshable(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.SubOrder{}).
		Where("placement = ? AND provider_order_id <> ''", model.PlacementPlaced).
		Where("status NOT IN ?", []string{model.StatusDelivered, model.StatusCancelled, model.StatusFailed}).
		Where("order_id > ?", afterID).
		Group("order_id").
		Order("order_id ASC").
		Limit(limit).
		Pluck("order_id", &ids).Error
	return ids, err
}

func (r *orderRepository) ListEvents(ctx context.Context, orderID int64) ([]model.OrderStatusEvent, error) {
	var events []model.OrderStatusEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
