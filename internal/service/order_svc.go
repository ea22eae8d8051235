package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	"pod_fulfillment_v1/internal/repository"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/money"
)

// ==================== dependencies ====================

// QuoteLookup resolves quote ids selected by the caller.
type QuoteLookup interface {
	GetIssued(id string) (*Quote, error)
}

// CreateOrderInput is a confirmed cart, one selected quote per provider group and a recipient.
type CreateOrderInput struct {
	UserID    string
	Lines     []CartLine
	QuoteIDs  []string
	Recipient model.Recipient
}

// placement is the outcome of one provider order-creation call.
type placement struct {
	index   int
	receipt *provider.OrderReceipt
	err     error
}

// ==================== OrderService ====================

// OrderService creates unified orders and places their provider sub-orders.
type OrderService struct {
	repo     repository.OrderRepository
	registry *RegistryService
	carts    *CartService
	quotes   QuoteLookup
	guard    *PricingGuard
	timeout  time.Duration
	prefix   string
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderService(
	repo repository.OrderRepository,
	registry *RegistryService,
	carts *CartService,
	quotes QuoteLookup,
	guard *PricingGuard,
	timeout time.Duration,
	prefix string,
	log *zap.Logger,
) *OrderService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if prefix == "" {
		prefix = "POD"
	}
	return &OrderService{
		repo:     repo,
		registry: registry,
		carts:    carts,
		quotes:   quotes,
		guard:    guard,
		timeout:  timeout,
		prefix:   prefix,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceCartOrder creates an order from the session cart. The cart is cleared
// once any provider accepted its sub-order.
func (s *OrderService) PlaceCartOrder(ctx context.Context, userID, sessionID string, quoteIDs []string, recipient model.Recipient) (*model.Order, error) {
	cart, err := s.carts.Get(sessionID)
	if err != nil {
		return nil, err
	}
	order, err := s.CreateOrder(ctx, CreateOrderInput{
		UserID:    userID,
		Lines:     cart.Lines,
		QuoteIDs:  quoteIDs,
		Recipient: recipient,
	})
	if order != nil && anyPlaced(order) {
		s.carts.Clear(sessionID)
	}
	return order, err
}

// CreateOrder validates the input, persists the order in the partial state,
// places every provider sub-order concurrently and records each outcome.
//
// When some providers accepted and others did not, the stored order is
// returned together with a *PartialOrderFailure. When none accepted, the
// stored order is returned with the provider error.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	quotes, err := s.selectedQuotes(in)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(in, quotes)
	if err := s.repo.CreateWithItems(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.log.Info("order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.Int("sub_orders", len(order.SubOrders)),
		zap.String("grand_total", order.GrandTotal.String()),
	)

	// provider calls run to completion even if the caller goes away
	placeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	results := s.place(placeCtx, order)

	return s.finalize(context.WithoutCancel(ctx), order, results)
}

// GetOrder returns an order owned by the user.
func (s *OrderService) GetOrder(ctx context.Context, userID string, id int64) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	return ownedOrder(order, err, userID, fmt.Sprint(id))
}

// GetOrderByNumber returns an order owned by the user.
func (s *OrderService) GetOrderByNumber(ctx context.Context, userID, number string) (*model.Order, error) {
	order, err := s.repo.GetByNumber(ctx, number)
	return ownedOrder(order, err, userID, number)
}

// ListEvents returns the audit trail of an order owned by the user.
func (s *OrderService) ListEvents(ctx context.Context, userID string, id int64) ([]model.OrderStatusEvent, error) {
	if _, err := s.GetOrder(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, id)
}

func ownedOrder(order *model.Order, err error, userID, ref string) (*model.Order, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrNotFound{Resource: "order", ID: ref}
		}
		return nil, fmt.Errorf("get order %s: %w", ref, err)
	}
	if userID != "" && order.UserID != userID {
		return nil, &apperrors.ErrNotFound{Resource: "order", ID: ref}
	}
	return order, nil
}

// ==================== validation ====================

func (s *OrderService) validate(in CreateOrderInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return apperrors.NewValidation("user_id", "user id is required")
	}
	if len(in.Lines) == 0 {
		return apperrors.NewValidation("cart", "cart is empty")
	}
	if err := validateRecipient(in.Recipient); err != nil {
		return err
	}

	providers := make(map[string]*model.Provider)
	for _, l := range in.Lines {
		p, ok := providers[l.ProviderSlug]
		if !ok {
			var err error
			p, err = s.registry.GetProvider(l.ProviderSlug)
			if err != nil || !p.IsActive() {
				return apperrors.NewValidation("provider", "provider "+l.ProviderSlug+" is not accepting orders")
			}
			providers[l.ProviderSlug] = p
		}
		if err := validateDesignURL(l.DesignURL); err != nil {
			return err
		}
		// prices may have been edited since the cart was priced
		if err := s.guard.ValidateLine(p, l.Copies, l.SellingPrice, l.BaseCost); err != nil {
			return fmt.Errorf("line %s/%s: %w", l.ProviderSlug, l.SKU, err)
		}
	}
	return nil
}

func validateRecipient(r model.Recipient) error {
	required := []struct {
		field string
		value string
	}{
		{"name", r.Name},
		{"line1", r.Line1},
		{"city", r.City},
		{"state", r.State},
		{"postal_code", r.PostalCode},
		{"country_code", r.CountryCode},
	}
	fields := make(map[string]string)
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields["recipient."+f.field] = f.field + " is required"
		}
	}
	if len(fields) > 0 {
		return &apperrors.ErrValidation{Message: "recipient address is incomplete", Fields: fields}
	}
	return nil
}

// selectedQuotes resolves exactly one issued quote per provider group of the cart.
func (s *OrderService) selectedQuotes(in CreateOrderInput) (map[string]*Quote, error) {
	if len(in.QuoteIDs) == 0 {
		return nil, apperrors.NewValidation("quote_ids", "a quote must be selected")
	}
	fingerprint := fingerprintLines(in.Lines)
	country := strings.ToUpper(strings.TrimSpace(in.Recipient.CountryCode))
	groups := groupByProvider(in.Lines)

	selected := make(map[string]*Quote, len(in.QuoteIDs))
	for _, id := range in.QuoteIDs {
		q, err := s.quotes.GetIssued(id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, &apperrors.ErrConflict{Message: "quote " + id + " expired, re-quote the cart"}
			}
			return nil, err
		}
		if _, ok := groups[q.Provider]; !ok {
			return nil, apperrors.NewValidation("quote_ids", "quote "+id+" is for provider "+q.Provider+" which has no items in the cart")
		}
		if _, dup := selected[q.Provider]; dup {
			return nil, apperrors.NewValidation("quote_ids", "more than one quote selected for provider "+q.Provider)
		}
		if q.CartFingerprint != fingerprint {
			return nil, &apperrors.ErrConflict{Message: "stale quote: cart changed since quote " + id + " was issued"}
		}
		if q.DestinationCountry != country {
			return nil, apperrors.NewValidation("quote_ids",
				fmt.Sprintf("quote %s ships to %s, recipient is in %s", id, q.DestinationCountry, country))
		}
		selected[q.Provider] = q
	}
	for slug := range groups {
		if _, ok := selected[slug]; !ok {
			return nil, apperrors.NewValidation("quote_ids", "no quote selected for provider "+slug)
		}
	}
	return selected, nil
}

// ==================== assembly ====================

func (s *OrderService) buildOrder(in CreateOrderInput, quotes map[string]*Quote) *model.Order {
	now := s.now()
	recipient := in.Recipient
	recipient.CountryCode = strings.ToUpper(strings.TrimSpace(recipient.CountryCode))

	order := &model.Order{
		OrderNumber: s.newOrderNumber(now),
		UserID:      in.UserID,
		Status:      model.StatusPartial,
		Currency:    money.ReferenceCurrency,
		Recipient:   datatypes.NewJSONType(recipient),
	}

	groups := groupByProvider(in.Lines)
	for _, slug := range providersOf(in.Lines) {
		q := quotes[slug]
		sub := model.SubOrder{
			ProviderSlug:     slug,
			QuoteID:          q.ID,
			ShippingMethodID: q.MethodID,
			ShippingLabel:    q.MethodLabel,
			Placement:        model.PlacementSubmitting,
			IdempotencyKey:   uuid.NewString(),
			Status:           model.StatusPartial,
			ShippingCost:     q.ShippingCost,
			ShippingSell:     q.ShippingSell,
			FxRate:           q.FxRate,
			MinDays:          q.MinDays,
			MaxDays:          q.MaxDays,
		}
		for _, l := range groups[slug] {
			sub.ItemsCost += l.ItemsCost()
			sub.ItemsSell += l.ItemsSell()
			order.Items = append(order.Items, model.OrderItem{
				ProviderSlug: slug,
				SKU:          l.SKU,
				Name:         l.Name,
				Variant:      l.Variant,
				Copies:       l.Copies,
				DesignURL:    l.DesignURL,
				SellingPrice: l.SellingPrice,
				BaseCost:     l.BaseCost,
			})
		}
		sub.Profit = sub.ItemsSell + sub.ShippingSell - sub.ItemsCost - sub.ShippingCost

		order.ItemsCost += sub.ItemsCost
		order.ItemsSell += sub.ItemsSell
		order.ShippingCost += sub.ShippingCost
		order.ShippingSell += sub.ShippingSell
		order.SubOrders = append(order.SubOrders, sub)

		from, to := q.EstimatedFrom, q.EstimatedTo
		if order.EstimatedFrom == nil || from.Before(*order.EstimatedFrom) {
			order.EstimatedFrom = &from
		}
		if order.EstimatedTo == nil || to.After(*order.EstimatedTo) {
			order.EstimatedTo = &to
		}
	}
	order.GrandTotal = order.ItemsSell + order.ShippingSell
	order.TotalProfit = order.GrandTotal - order.ItemsCost - order.ShippingCost
	return order
}

// newOrderNumber returns PREFIX-YYYYMMDD-XXXXXXXX.
func (s *OrderService) newOrderNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s-%s", s.prefix, now.Format("20060102"), strings.ToUpper(id[:8]))
}

// ==================== placement ====================

// place calls every provider at once and waits for all of them.
func (s *OrderService) place(ctx context.Context, order *model.Order) []placement {
	recipient := providerAddress(order.Recipient.Data())

	p := pool.NewWithResults[placement]()
	for i := range order.SubOrders {
		sub := &order.SubOrders[i]
		req := provider.OrderRequest{
			Reference:      order.OrderNumber,
			IdempotencyKey: sub.IdempotencyKey,
			ShippingMethod: sub.ShippingMethodID,
			Recipient:      recipient,
		}
		for _, item := range order.Items {
			if item.ProviderSlug == sub.ProviderSlug {
				req.Items = append(req.Items, provider.Item{SKU: item.SKU, Copies: item.Copies, DesignURL: item.DesignURL})
			}
		}
		slug := sub.ProviderSlug
		p.Go(func() placement {
			_, client, err := s.registry.Client(slug)
			if err != nil {
				return placement{index: i, err: err}
			}
			receipt, err := client.CreateOrder(ctx, req)
			return placement{index: i, receipt: receipt, err: err}
		})
	}
	results := p.Wait()
	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	return results
}

// finalize records each provider outcome and resolves the partial state.
func (s *OrderService) finalize(ctx context.Context, order *model.Order, results []placement) (*model.Order, error) {
	var (
		events   []model.OrderStatusEvent
		outcomes []apperrors.SubOrderOutcome
		failures []string
		firstErr error
		placed   int
	)
	for _, r := range results {
		sub := &order.SubOrders[r.index]
		sub.Attempts++
		outcome := apperrors.SubOrderOutcome{Provider: sub.ProviderSlug}

		if r.err == nil && (r.receipt == nil || r.receipt.ProviderOrderID == "") {
			r.err = &apperrors.ErrProvider{Provider: sub.ProviderSlug, Message: "order accepted without an order id"}
		}
		if r.err != nil {
			sub.Placement = model.PlacementFailed
			sub.Status = model.StatusFailed
			sub.Error = r.err.Error()
			outcome.Error = describeFailure(r.err)
			failures = append(failures, sub.ProviderSlug+": "+outcome.Error)
			if firstErr == nil {
				firstErr = r.err
			}
			s.log.Error("provider order placement failed",
				zap.String("order_number", order.OrderNumber),
				zap.String("provider", sub.ProviderSlug),
				zap.Error(r.err),
			)
		} else {
			placed++
			sub.Placement = model.PlacementPlaced
			sub.ProviderOrderID = r.receipt.ProviderOrderID
			sub.ProviderStatus = r.receipt.RawStatus
			sub.Status = receiptStatus(r.receipt.Status)
			outcome.Placed = true
			outcome.ProviderOrderID = sub.ProviderOrderID
			s.log.Info("provider order placed",
				zap.String("order_number", order.OrderNumber),
				zap.String("provider", sub.ProviderSlug),
				zap.String("provider_order_id", sub.ProviderOrderID),
			)
		}
		outcomes = append(outcomes, outcome)
		events = append(events, model.OrderStatusEvent{
			OrderID:    order.ID,
			SubOrderID: sub.ID,
			Kind:       model.EventPlacement,
			FromStatus: model.StatusPartial,
			ToStatus:   sub.Status,
			Detail:     placementDetail(sub),
		})
	}

	switch {
	case placed == len(results):
		statuses := make([]string, 0, len(order.SubOrders))
		for i := range order.SubOrders {
			statuses = append(statuses, order.SubOrders[i].Status)
		}
		order.Status = model.AggregateStatus(statuses...)
	case placed == 0:
		order.Status = model.StatusFailed
		order.FailureReason = strings.Join(failures, "; ")
	default:
		order.Status = model.StatusFailed
		order.NeedsRemediation = true
		order.FailureReason = "partially placed: " + strings.Join(failures, "; ")
	}
	events = append(events, model.OrderStatusEvent{
		OrderID:    order.ID,
		Kind:       model.EventStatus,
		FromStatus: model.StatusPartial,
		ToStatus:   order.Status,
		Detail:     order.FailureReason,
	})

	if err := s.repo.FinalizePlacement(ctx, order, events); err != nil {
		// provider orders may exist without a recorded outcome
		s.log.Error("order placement outcome not recorded",
			zap.String("order_number", order.OrderNumber),
			zap.Any("outcomes", outcomes),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record placement of %s: %w", order.OrderNumber, err)
	}

	switch {
	case placed == len(results):
		return order, nil
	case placed == 0:
		return order, fmt.Errorf("order %s not placed: %w", order.OrderNumber, firstErr)
	default:
		s.log.Warn("order partially placed",
			zap.String("order_number", order.OrderNumber),
			zap.Any("outcomes", outcomes),
		)
		return order, &apperrors.PartialOrderFailure{OrderNumber: order.OrderNumber, Outcomes: outcomes}
	}
}

// receiptStatus keeps a forward status reported at creation, else pending.
func receiptStatus(status string) string {
	if model.Rank(status) > model.Rank(model.StatusPending) {
		return status
	}
	return model.StatusPending
}

func describeFailure(err error) string {
	if apperrors.IsUnavailable(err) {
		return "provider temporarily unavailable: " + err.Error()
	}
	return err.Error()
}

func placementDetail(sub *model.SubOrder) string {
	if sub.Placement == model.PlacementPlaced {
		return sub.ProviderSlug + " order " + sub.ProviderOrderID
	}
	return sub.ProviderSlug + ": " + sub.Error
}

func anyPlaced(order *model.Order) bool {
	for i := range order.SubOrders {
		if order.SubOrders[i].IsPlaced() {
			return true
		}
	}
	return false
}
