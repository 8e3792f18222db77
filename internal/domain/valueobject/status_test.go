package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusPaid, OrderStatusCompleted, true},
		{OrderStatusPaid, OrderStatusDisputed, true},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusDisputed, true},
		{OrderStatusCompleted, OrderStatusPaid, false},
		{OrderStatusDisputed, OrderStatusResolvedRefund, true},
		{OrderStatusDisputed, OrderStatusResolvedRelease, true},
		{OrderStatusDisputed, OrderStatusPaid, true},
		{OrderStatusCancelled, OrderStatusPaid, false},
		{OrderStatusResolvedRefund, OrderStatusDisputed, false},
		{OrderStatusResolvedRelease, OrderStatusCompleted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusResolvedRefund.IsTerminal())
	assert.True(t, OrderStatusResolvedRelease.IsTerminal())
	assert.False(t, OrderStatusCompleted.IsTerminal())
	assert.False(t, OrderStatus("bogus").IsTerminal())
}

func TestDisputeStatus_ActiveAndTerminal(t *testing.T) {
	assert.True(t, DisputeStatusOpen.IsActive())
	assert.True(t, DisputeStatusInReview.IsActive())
	assert.True(t, DisputeStatusCancelled.IsTerminal())
	assert.False(t, DisputeStatusInReview.CanTransitionTo(DisputeStatusCancelled))
	assert.False(t, DisputeStatusResolvedRefund.CanTransitionTo(DisputeStatusResolvedRelease))
}

func TestWithdrawalStatus_Reserves(t *testing.T) {
	assert.True(t, WithdrawalStatusPending.Reserves())
	assert.True(t, WithdrawalStatusPaid.Reserves())
	assert.False(t, WithdrawalStatusRejected.Reserves())
	assert.False(t, WithdrawalStatusPaid.CanTransitionTo(WithdrawalStatusRejected))
}

func TestResolution_Statuses(t *testing.T) {
	r, err := NewResolution("refund")
	require.NoError(t, err)
	ds, os := r.Statuses()
	assert.Equal(t, DisputeStatusResolvedRefund, ds)
	assert.Equal(t, OrderStatusResolvedRefund, os)

	_, err = NewResolution("split")
	assert.Error(t, err)
}

func TestNewAmount_Status(t *testing.T) {
	_, err := NewAmount(decimal.Zero)
	assert.Error(t, err)

	_, err = NewAmount(decimal.RequireFromString("-1"))
	assert.Error(t, err)

	_, err = NewAmount(decimal.RequireFromString("1.005"))
	assert.Error(t, err)

	a, err := ParseAmount("60.00")
	require.NoError(t, err)
	assert.True(t, a.Equal(decimal.NewFromInt(60)))
}

func TestNewDisputeReason_Normalizes(t *testing.T) {
	r, err := NewDisputeReason("Not delivered")
	require.NoError(t, err)
	assert.Equal(t, DisputeReasonNotDelivered, r)

	r, err = NewDisputeReason("not-as-described")
	require.NoError(t, err)
	assert.Equal(t, DisputeReasonNotAsDescribed, r)

	_, err = NewDisputeReason("changed my mind")
	assert.Error(t, err)
}
