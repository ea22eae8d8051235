package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	"pod_fulfillment_v1/internal/repository"
	apperrors "pod_fulfillment_v1/pkg/errors"
)

// ==================== TrackingService ====================

// TrackingService is the only writer of an order after placement. It polls
// providers, maps their status into the lifecycle and records shipments.
type TrackingService struct {
	repo        repository.OrderRepository
	registry    *RegistryService
	timeout     time.Duration
	concurrency int
	log         *zap.Logger

	locks sync.Map // order id -> *sync.Mutex
}

type TrackingServiceOptions struct {
	ProviderTimeout time.Duration
	Concurrency     int
}

func NewTrackingService(repo repository.OrderRepository, registry *RegistryService, opts TrackingServiceOptions, log *zap.Logger) *TrackingService {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 20 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &TrackingService{
		repo:        repo,
		registry:    registry,
		timeout:     opts.ProviderTimeout,
		concurrency: opts.Concurrency,
		log:         log,
	}
}

// OrderPage is one page of a user's orders.
type OrderPage struct {
	Items    []model.Order `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ListOrders returns the user's orders, newest first.
func (s *TrackingService) ListOrders(ctx context.Context, userID string, filter repository.OrderFilter) (*OrderPage, error) {
	if userID == "" {
		return nil, apperrors.NewValidation("user_id", "user id is required")
	}
	if filter.Status != "" && !model.IsKnownStatus(filter.Status) {
		return nil, apperrors.NewValidation("status", "unknown status "+filter.Status)
	}
	filter.UserID = userID
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &OrderPage{Items: orders, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// RefreshOrder refreshes an order after checking it belongs to the user.
func (s *TrackingService) RefreshOrder(ctx context.Context, userID string, orderID int64) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if _, err := ownedOrder(order, err, userID, fmt.Sprint(orderID)); err != nil {
		return nil, err
	}
	return s.RefreshStatus(ctx, orderID)
}

// RefreshStatus polls every trackable sub-order of the order and applies the
// forward moves. Backward moves are logged and recorded as stale events;
// nothing else is written. Refreshing twice with no provider-side change
// leaves the order unchanged.
func (s *TrackingService) RefreshStatus(ctx context.Context, orderID int64) (*model.Order, error) {
	unlock := s.lock(orderID)
	defer unlock()

	order, err := s.repo.GetByID(ctx, orderID)
	order, err = ownedOrder(order, err, "", fmt.Sprint(orderID))
	if err != nil {
		return nil, err
	}
	if !order.CanRefresh() {
		s.locks.Delete(orderID)
		return order, nil
	}

	states := s.poll(ctx, order)
	update := s.reconcile(order, states)
	if err := s.dropRepeatedStale(ctx, &update); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return order, nil
	}
	if err := s.repo.ApplyTracking(ctx, update); err != nil {
		return nil, fmt.Errorf("apply tracking for %s: %w", order.OrderNumber, err)
	}
	refreshed, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if refreshed.IsTerminal() && !refreshed.CanRefresh() {
		s.locks.Delete(orderID)
	}
	return refreshed, nil
}

// BatchResult summarizes one polling batch.
type BatchResult struct {
	Orders int
	Failed int
	LastID int64 // cursor for the next batch; 0 when the scan wrapped
}

// RefreshBatch refreshes up to limit orders with an id above afterID.
func (s *TrackingService) RefreshBatch(ctx context.Context, afterID int64, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.repo.ListRefreshable(ctx, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list refreshable orders: %w", err)
	}
	res := &BatchResult{Orders: len(ids)}
	if len(ids) == limit {
		res.LastID = ids[len(ids)-1]
	}

	p := pool.NewWithResults[bool]().WithMaxGoroutines(s.concurrency)
	for _, id := range ids {
		p.Go(func() bool {
			if _, err := s.RefreshStatus(ctx, id); err != nil {
				s.log.Warn("order refresh failed", zap.Int64("order_id", id), zap.Error(err))
				return false
			}
			return true
		})
	}
	for _, ok := range p.Wait() {
		if !ok {
			res.Failed++
		}
	}
	return res, nil
}

func (s *TrackingService) lock(orderID int64) func() {
	v, _ := s.locks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ==================== polling ====================

type subOrderState struct {
	index int
	state *provider.OrderState
}

// poll queries every trackable sub-order at once. Failed reads are logged
// and skipped; the next refresh will try again.
func (s *TrackingService) poll(ctx context.Context, order *model.Order) []subOrderState {
	p := pool.NewWithResults[subOrderState]()
	for i := range order.SubOrders {
		sub := order.SubOrders[i]
		if !sub.IsTrackable() {
			continue
		}
		p.Go(func() subOrderState {
			_, client, err := s.registry.Client(sub.ProviderSlug)
			if err != nil {
				s.log.Warn("no client for sub-order",
					zap.String("order_number", order.OrderNumber), zap.String("provider", sub.ProviderSlug), zap.Error(err))
				return subOrderState{index: i}
			}
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			state, err := client.GetOrder(callCtx, sub.ProviderOrderID)
			if err != nil {
				s.log.Warn("provider status read failed",
					zap.String("order_number", order.OrderNumber), zap.String("provider", sub.ProviderSlug), zap.Error(err))
				return subOrderState{index: i}
			}
			return subOrderState{index: i, state: state}
		})
	}
	states := p.Wait()
	sort.Slice(states, func(a, b int) bool { return states[a].index < states[b].index })
	return states
}

// ==================== reconciliation ====================

// reconcile turns provider reads into the rows that must change.
func (s *TrackingService) reconcile(order *model.Order, states []subOrderState) repository.TrackingUpdate {
	update := repository.TrackingUpdate{Order: order}

	var dropped []*model.SubOrder
	for _, st := range states {
		if st.state == nil {
			continue
		}
		sub := &order.SubOrders[st.index]
		changed := s.applySubStatus(order, sub, st.state, &update)
		for _, sh := range st.state.Shipments {
			s.applyShipment(order, sub, sh, &update)
		}
		if changed {
			update.SubOrders = append(update.SubOrders, sub)
			if sub.Status == model.StatusFailed || sub.Status == model.StatusCancelled {
				dropped = append(dropped, sub)
			}
		}
	}

	// a partially placed order stays failed for manual remediation
	if order.NeedsRemediation {
		return update
	}
	statuses := make([]string, 0, len(order.SubOrders))
	for i := range order.SubOrders {
		statuses = append(statuses, order.SubOrders[i].Status)
	}
	next := model.AggregateStatus(statuses...)
	if len(dropped) > 0 && model.Rank(next) >= 0 {
		s.flagRemediation(order, dropped, &update)
		return update
	}
	switch model.CompareStatus(order.Status, next) {
	case model.TransitionAdvance:
		update.Events = append(update.Events, model.OrderStatusEvent{
			OrderID:    order.ID,
			Kind:       model.EventStatus,
			FromStatus: order.Status,
			ToStatus:   next,
		})
		s.log.Info("order status changed",
			zap.String("order_number", order.OrderNumber),
			zap.String("from", order.Status), zap.String("to", next))
		order.Status = next
		update.OrderChanged = true
	case model.TransitionStale:
		s.log.Warn("stale order status ignored",
			zap.String("order_number", order.OrderNumber),
			zap.String("status", order.Status), zap.String("rejected", next))
	}
	return update
}

// flagRemediation fails an order whose sub-order dropped out after placement
// while other parts are still moving. The live parts stay tracked.
func (s *TrackingService) flagRemediation(order *model.Order, dropped []*model.SubOrder, update *repository.TrackingUpdate) {
	reasons := make([]string, 0, len(dropped))
	for _, sub := range dropped {
		reasons = append(reasons, sub.ProviderSlug+" "+sub.Status+" after placement")
	}
	reason := strings.Join(reasons, "; ")

	s.log.Warn("sub-order dropped after placement",
		zap.String("order_number", order.OrderNumber),
		zap.String("status", order.Status), zap.String("reason", reason))
	update.Events = append(update.Events, model.OrderStatusEvent{
		OrderID:    order.ID,
		Kind:       model.EventStatus,
		FromStatus: order.Status,
		ToStatus:   model.StatusFailed,
		Detail:     reason,
	})
	order.Status = model.StatusFailed
	order.NeedsRemediation = true
	order.FailureReason = reason
	update.OrderChanged = true
}

func (s *TrackingService) applySubStatus(order *model.Order, sub *model.SubOrder, state *provider.OrderState, update *repository.TrackingUpdate) bool {
	if state.Status == "" {
		s.log.Warn("unmapped provider status",
			zap.String("order_number", order.OrderNumber),
			zap.String("provider", sub.ProviderSlug),
			zap.String("raw_status", state.RawStatus))
		return false
	}

	switch model.CompareStatus(sub.Status, state.Status) {
	case model.TransitionAdvance:
		update.Events = append(update.Events, model.OrderStatusEvent{
			OrderID:    order.ID,
			SubOrderID: sub.ID,
			Kind:       model.EventStatus,
			FromStatus: sub.Status,
			ToStatus:   state.Status,
			Detail:     sub.ProviderSlug + " reported " + state.RawStatus,
		})
		sub.Status = state.Status
		sub.ProviderStatus = state.RawStatus
		return true
	case model.TransitionStale:
		s.staleRead(order, sub.ID, sub.ProviderSlug, sub.Status, state.Status, state.RawStatus, update)
		return false
	default:
		if state.RawStatus != "" && state.RawStatus != sub.ProviderStatus {
			sub.ProviderStatus = state.RawStatus
			return true
		}
		return false
	}
}

func (s *TrackingService) applyShipment(order *model.Order, sub *model.SubOrder, st provider.ShipmentState, update *repository.TrackingUpdate) {
	if st.ProviderShipmentID == "" && st.TrackingNumber == "" {
		return
	}
	status := st.Status
	if status == "" {
		status = model.StatusShipped
	}

	existing := findShipment(sub.Shipments, st)
	if existing == nil {
		sh := &model.Shipment{
			SubOrderID:         sub.ID,
			ProviderShipmentID: st.ProviderShipmentID,
			Carrier:            st.Carrier,
			Service:            st.Service,
			TrackingNumber:     st.TrackingNumber,
			TrackingURL:        st.TrackingURL,
			Status:             status,
			ShippedAt:          st.ShippedAt,
			DeliveredAt:        st.DeliveredAt,
		}
		sub.Shipments = append(sub.Shipments, *sh)
		update.NewShipments = append(update.NewShipments, sh)
		update.Events = append(update.Events, model.OrderStatusEvent{
			OrderID:    order.ID,
			SubOrderID: sub.ID,
			Kind:       model.EventShipment,
			ToStatus:   status,
			Detail:     shipmentDetail(sh),
		})
		return
	}

	changed := false
	switch model.CompareStatus(existing.Status, status) {
	case model.TransitionAdvance:
		update.Events = append(update.Events, model.OrderStatusEvent{
			OrderID:    order.ID,
			SubOrderID: sub.ID,
			Kind:       model.EventShipment,
			FromStatus: existing.Status,
			ToStatus:   status,
			Detail:     shipmentDetail(existing),
		})
		existing.Status = status
		changed = true
	case model.TransitionStale:
		s.staleRead(order, sub.ID, sub.ProviderSlug, existing.Status, status, "shipment "+shipmentDetail(existing), update)
	}
	changed = fill(&existing.Carrier, st.Carrier) || changed
	changed = fill(&existing.Service, st.Service) || changed
	changed = fill(&existing.TrackingNumber, st.TrackingNumber) || changed
	changed = fill(&existing.TrackingURL, st.TrackingURL) || changed
	if existing.ShippedAt == nil && st.ShippedAt != nil {
		existing.ShippedAt = st.ShippedAt
		changed = true
	}
	if existing.DeliveredAt == nil && st.DeliveredAt != nil {
		existing.DeliveredAt = st.DeliveredAt
		changed = true
	}
	if changed {
		update.Shipments = append(update.Shipments, existing)
	}
}

func (s *TrackingService) staleRead(order *model.Order, subID int64, slug, current, reported, detail string, update *repository.TrackingUpdate) {
	s.log.Warn("stale status ignored",
		zap.String("order_number", order.OrderNumber),
		zap.String("provider", slug),
		zap.String("status", current),
		zap.String("rejected", reported),
		zap.String("detail", detail),
		zap.Error(&apperrors.ErrInvalidStateTransition{From: current, To: reported}),
	)
	update.Events = append(update.Events, model.OrderStatusEvent{
		OrderID:    order.ID,
		SubOrderID: subID,
		Kind:       model.EventStale,
		FromStatus: current,
		ToStatus:   reported,
		Detail:     detail,
	})
}

// dropRepeatedStale removes stale events already recorded as the latest event
// of their sub-order, so a provider stuck on an old status is logged but
// does not grow the history on every poll.
func (s *TrackingService) dropRepeatedStale(ctx context.Context, update *repository.TrackingUpdate) error {
	hasStale := false
	for _, e := range update.Events {
		if e.Kind == model.EventStale {
			hasStale = true
			break
		}
	}
	if !hasStale {
		return nil
	}

	history, err := s.repo.ListEvents(ctx, update.Order.ID)
	if err != nil {
		return fmt.Errorf("list events for %s: %w", update.Order.OrderNumber, err)
	}
	latest := make(map[int64]model.OrderStatusEvent)
	for _, e := range history {
		latest[e.SubOrderID] = e
	}

	kept := update.Events[:0]
	for _, e := range update.Events {
		last, ok := latest[e.SubOrderID]
		if e.Kind == model.EventStale && ok && last.Kind == model.EventStale &&
			last.FromStatus == e.FromStatus && last.ToStatus == e.ToStatus && last.Detail == e.Detail {
			continue
		}
		kept = append(kept, e)
	}
	update.Events = kept
	return nil
}

// findShipment matches by provider shipment id, then by tracking number.
func findShipment(shipments []model.Shipment, st provider.ShipmentState) *model.Shipment {
	for i := range shipments {
		sh := &shipments[i]
		if st.ProviderShipmentID != "" && sh.ProviderShipmentID == st.ProviderShipmentID {
			return sh
		}
	}
	for i := range shipments {
		sh := &shipments[i]
		if st.TrackingNumber != "" && sh.TrackingNumber == st.TrackingNumber {
			return sh
		}
	}
	return nil
}

// fill sets an empty or different field from a non-empty provider value.
func fill(dst *string, v string) bool {
	if v == "" || *dst == v {
		return false
	}
	*dst = v
	return true
}

func shipmentDetail(sh *model.Shipment) string {
	if sh.TrackingNumber == "" {
		return sh.Carrier
	}
	return sh.Carrier + " " + sh.TrackingNumber
}
