package model

// ==================== order lifecycle ====================

// Order / sub-order / shipment status. Values are stored as-is.
const (
	StatusPartial      = "partial" // order created, provider placement still in flight
	StatusPending      = "pending"
	StatusProcessing   = "processing"
	StatusInProduction = "in_production"
	StatusShipped      = "shipped"
	StatusDelivered    = "delivered"
	StatusCancelled    = "cancelled"
	StatusFailed       = "failed"
)

// statusRank orders the forward lifecycle. cancelled and failed sit outside it.
var statusRank = map[string]int{
	StatusPartial:      0,
	StatusPending:      1,
	StatusProcessing:   2,
	StatusInProduction: 3,
	StatusShipped:      4,
	StatusDelivered:    5,
}

// IsKnownStatus reports whether s is part of the vocabulary.
func IsKnownStatus(s string) bool {
	if _, ok := statusRank[s]; ok {
		return true
	}
	return s == StatusCancelled || s == StatusFailed
}

// IsTerminal reports whether no further provider update can change s.
func IsTerminal(s string) bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusFailed
}

// Rank returns the lifecycle position of s, or -1 for cancelled/failed/unknown.
func Rank(s string) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Transition is the outcome of comparing a stored status with a provider report.
type Transition int

const (
	TransitionNone    Transition = iota // same status
	TransitionAdvance                   // apply
	TransitionStale                     // would move backward or out of a terminal state; ignore
)

// CompareStatus decides whether moving from current to next is allowed.
// Forward moves are applied, backward moves are stale. cancelled and failed
// can be entered from any non-terminal state.
func CompareStatus(current, next string) Transition {
	if current == next {
		return TransitionNone
	}
	if IsTerminal(current) {
		return TransitionStale
	}
	if next == StatusCancelled || next == StatusFailed {
		return TransitionAdvance
	}
	if Rank(next) > Rank(current) {
		return TransitionAdvance
	}
	return TransitionStale
}

// ==================== sub-order placement ====================

// SubOrder placement state, separate from the fulfillment lifecycle.
const (
	PlacementSubmitting = "submitting"
	PlacementPlaced     = "placed"
	PlacementFailed     = "failed"
)

// AggregateStatus folds component statuses into one: the slowest forward
// status wins; cancelled/failed components only decide the result when no
// component is still moving forward. Returns "" for an empty input.
func AggregateStatus(statuses ...string) string {
	lowest := -1
	agg := ""
	allCancelled := true
	for _, s := range statuses {
		if s != StatusCancelled {
			allCancelled = false
		}
		r := Rank(s)
		if r < 0 {
			continue
		}
		if lowest < 0 || r < lowest {
			lowest = r
			agg = s
		}
	}
	switch {
	case len(statuses) == 0:
		return ""
	case agg != "":
		return agg
	case allCancelled:
		return StatusCancelled
	}
	return StatusFailed
}
