package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
)

func TestCreateOrder_SnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct("12.50", 10)

	order, err := f.orders.CreateOrder(f.ctx, f.buyer.UserID, p.ID, 4)

	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(amount("50.00")))
	assert.Equal(t, f.seller.UserID, order.SellerID)

	history, err := f.orders.GetOrderHistory(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.HistoryActionCreated, history[0].Action)
}

func TestCreateOrder_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct("10.00", 2)

	_, err := f.orders.CreateOrder(f.ctx, f.seller.UserID, p.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	_, err = f.orders.CreateOrder(f.ctx, f.buyer.UserID, p.ID, 3)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.orders.CreateOrder(f.ctx, f.buyer.UserID, p.ID, 0)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.orders.CreateOrder(f.ctx, f.buyer.UserID, uuid.New(), 1)
	assert.True(t, apperror.IsNotFound(err))

	p.IsActive = false
	f.store.PutProduct(p)
	_, err = f.orders.CreateOrder(f.ctx, f.buyer.UserID, p.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)
}

func TestConfirmPayment_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("100.00")

	again, applied, err := f.orders.ConfirmPayment(f.ctx, order.ID, "")

	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, valueobject.OrderStatusPaid, again.Status)
	assert.True(t, f.balance().Pending.Equal(amount("100.00")))
	assert.Eventually(t, func() bool { return f.notifier.count(events.EventOrderPaid) == 2 }, time.Second, 10*time.Millisecond)
}

func TestConfirmPayment_CancelledOrderFails(t *testing.T) {
	f := newFixture(t)
	order := f.pendingOrder("100.00")
	_, err := f.orders.CancelOrder(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)

	_, _, err = f.orders.ConfirmPayment(f.ctx, order.ID, "")

	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestConfirmPayment_NoOpAfterDisputeResolution(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("100.00")
	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "not_delivered", "")
	require.NoError(t, err)
	_, err = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "refund", "ключ не выдан")
	require.NoError(t, err)

	got, applied, err := f.orders.ConfirmPayment(f.ctx, order.ID, "")

	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, valueobject.OrderStatusResolvedRefund, got.Status)
}

func TestCreatePaymentIntent_ReusesReference(t *testing.T) {
	f := newFixture(t)
	order := f.pendingOrder("30.00")
	f.gateway.On("CreateIntent", mock.Anything, order.ID, mock.Anything, f.buyer.UserID).Return("sbx_123", nil).Once()

	ref, err := f.orders.CreatePaymentIntent(f.ctx, order.ID, f.buyer.UserID)
	require.NoError(t, err)
	assert.Equal(t, "sbx_123", ref)

	ref, err = f.orders.CreatePaymentIntent(f.ctx, order.ID, f.buyer.UserID)
	require.NoError(t, err)
	assert.Equal(t, "sbx_123", ref)
	f.gateway.AssertExpectations(t)

	paid, applied, err := f.orders.ConfirmPaymentByReference(f.ctx, "sbx_123")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, valueobject.OrderStatusPaid, paid.Status)

	_, _, err = f.orders.ConfirmPayment(f.ctx, order.ID, "sbx_other")
	assert.ErrorIs(t, err, apperror.ErrNotEligible)
}

func TestCreatePaymentIntent_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	order := f.pendingOrder("30.00")
	f.gateway.On("CreateIntent", mock.Anything, order.ID, mock.Anything, f.buyer.UserID).Return("", errors.New("timeout"))

	_, err := f.orders.CreatePaymentIntent(f.ctx, order.ID, f.buyer.UserID)

	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(err))
}

func TestCreatePaymentIntent_OnlyBuyer(t *testing.T) {
	f := newFixture(t)
	order := f.pendingOrder("30.00")

	_, err := f.orders.CreatePaymentIntent(f.ctx, order.ID, f.seller.UserID)

	assert.ErrorIs(t, err, apperror.ErrNotEligible)
	f.gateway.AssertNotCalled(t, "CreateIntent")
}

func TestCompleteOrder(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("100.00")

	_, err := f.orders.CompleteOrder(f.ctx, order.ID, f.seller)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	completed, err := f.orders.CompleteOrder(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Empty(t, completed.Warnings)

	_, err = f.orders.CompleteOrder(f.ctx, order.ID, f.buyer)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	b := f.balance()
	assert.True(t, b.Total.Equal(amount("100.00")))
	assert.True(t, b.Available.Equal(amount("100.00")))
	assert.True(t, b.Pending.IsZero())
}

func TestCompleteOrder_NegativeStockIsWarning(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct("5.00", 3)
	first, err := f.orders.CreateOrder(f.ctx, f.buyer.UserID, p.ID, 3)
	require.NoError(t, err)
	second, err := f.orders.CreateOrder(f.ctx, f.buyer.UserID, p.ID, 2)
	require.NoError(t, err)
	for _, o := range []*models.Order{first, second} {
		_, _, err := f.orders.ConfirmPayment(f.ctx, o.ID, "")
		require.NoError(t, err)
	}

	_, err = f.orders.CompleteOrder(f.ctx, first.ID, f.buyer)
	require.NoError(t, err)
	completed, err := f.orders.CompleteOrder(f.ctx, second.ID, f.buyer)

	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, completed.Status)
	assert.Len(t, completed.Warnings, 1)
}

func TestCompleteOrder_SystemActor(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("10.00")

	completed, err := f.orders.CompleteOrder(f.ctx, order.ID, models.SystemActor)

	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, completed.Status)
}

func TestCancelOrder_OnlyPending(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("10.00")

	_, err := f.orders.CancelOrder(f.ctx, order.ID, f.buyer)

	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestGetOrder_Access(t *testing.T) {
	f := newFixture(t)
	order := f.pendingOrder("10.00")

	_, err := f.orders.GetOrder(f.ctx, order.ID, models.Actor{UserID: uuid.New(), Role: models.RoleUser})
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	_, err = f.orders.GetOrder(f.ctx, order.ID, f.admin)
	assert.NoError(t, err)

	_, err = f.orders.GetOrder(f.ctx, order.ID, f.seller)
	assert.NoError(t, err)
}

func TestListOrders_ByRole(t *testing.T) {
	f := newFixture(t)
	f.pendingOrder("10.00")
	f.pendingOrder("20.00")

	bought, err := f.orders.ListOrders(f.ctx, f.buyer.UserID, OrderRoleBuyer, 10, 0)
	require.NoError(t, err)
	assert.Len(t, bought, 2)

	sold, err := f.orders.ListOrders(f.ctx, f.buyer.UserID, OrderRoleSeller, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, sold)

	_, err = f.orders.ListOrders(f.ctx, f.buyer.UserID, "supplier", 10, 0)
	assert.True(t, apperror.IsValidation(err))
}

func TestOrderEventsReachBothParticipants(t *testing.T) {
	f := newFixture(t)
	f.completedOrder("10.00")

	assert.Eventually(t, func() bool {
		return f.notifier.has(f.buyer.UserID, events.EventOrderCompleted) &&
			f.notifier.has(f.seller.UserID, events.EventOrderCompleted)
	}, time.Second, 10*time.Millisecond)
}
