package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationMessageIncludesSortedFields(t *testing.T) {
	err := &ErrValidation{
		Message: "recipient incomplete",
		Fields:  map[string]string{"postal_code": "required", "city": "required"},
	}
	assert.Equal(t, "recipient incomplete (city: required; postal_code: required)", err.Error())
	assert.Equal(t, "validation failed", (&ErrValidation{}).Error())
}

func TestClassificationThroughWrapping(t *testing.T) {
	unavailable := fmt.Errorf("quote prodigi: %w", &ErrProviderUnavailable{Provider: "prodigi", Err: context.DeadlineExceeded})
	assert.True(t, IsUnavailable(unavailable))
	assert.ErrorIs(t, unavailable, context.DeadlineExceeded)
	assert.False(t, IsProviderRejection(unavailable))

	rejected := fmt.Errorf("create: %w", &ErrProvider{Provider: "printful", StatusCode: 400, Message: "bad variant"})
	assert.True(t, IsProviderRejection(rejected))
	assert.Contains(t, rejected.Error(), "bad variant")

	assert.True(t, IsNotFound(fmt.Errorf("x: %w", &ErrNotFound{Resource: "provider", ID: "zazzle"})))
	assert.True(t, IsValidation(NewValidation("copies", "must be positive")))
}

func TestPartialOrderFailureMessage(t *testing.T) {
	err := &PartialOrderFailure{
		OrderNumber: "POD-1",
		Outcomes: []SubOrderOutcome{
			{Provider: "prodigi", Placed: true, ProviderOrderID: "ord_1"},
			{Provider: "printful", Error: "timeout"},
		},
	}
	assert.Equal(t, "order POD-1 partially placed: placed=[prodigi] failed=[printful]", err.Error())
}
