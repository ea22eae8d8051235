package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation is returned when input is rejected before any side effect
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "validation failed"
	}
	if len(e.Fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// NewValidation builds a single-field validation error.
func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{Message: reason, Fields: map[string]string{field: reason}}
}

// ErrConflict is returned when the request no longer matches stored state (e.g. stale quote)
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrProviderUnavailable is a transient provider failure: timeout, network, 429 or 5xx.
type ErrProviderUnavailable struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s unavailable: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrProvider is a definitive rejection by the provider (4xx other than 429).
type ErrProvider struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("provider %s rejected request (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// SubOrderOutcome reports what happened to one provider during order placement.
type SubOrderOutcome struct {
	Provider        string `json:"provider"`
	Placed          bool   `json:"placed"`
	ProviderOrderID string `json:"provider_order_id,omitempty"`
	Error           string `json:"error,omitempty"`
}

// PartialOrderFailure is returned when some providers accepted their sub-order and others did not.
type PartialOrderFailure struct {
	OrderNumber string
	Outcomes    []SubOrderOutcome
}

func (e *PartialOrderFailure) Error() string {
	var placed, failed []string
	for _, o := range e.Outcomes {
		if o.Placed {
			placed = append(placed, o.Provider)
		} else {
			failed = append(failed, o.Provider)
		}
	}
	return fmt.Sprintf("order %s partially placed: placed=[%s] failed=[%s]",
		e.OrderNumber, strings.Join(placed, ","), strings.Join(failed, ","))
}

// ErrInvalidStateTransition is returned when a status change would move backward
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ==================== helpers ====================

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ErrValidation
	return errors.As(err, &target)
}

func IsUnavailable(err error) bool {
	var target *ErrProviderUnavailable
	return errors.As(err, &target)
}

func IsProviderRejection(err error) bool {
	var target *ErrProvider
	return errors.As(err, &target)
}
