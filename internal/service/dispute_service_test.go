package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
)

func TestDispute_RefundFlow(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("100.00")

	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "not delivered", "ключ не пришёл")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, valueobject.OrderStatusPaid, dispute.OrderStatusBefore)

	got, err := f.orders.GetOrder(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusDisputed, got.Status)

	b := f.balance()
	assert.True(t, b.Available.IsZero())
	assert.True(t, b.Pending.IsZero())

	resolved, err := f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "refund", "продавец не выдал ключ")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusResolvedRefund, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, f.admin.UserID, *resolved.ResolvedBy)

	got, err = f.orders.GetOrder(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusResolvedRefund, got.Status)

	b = f.balance()
	assert.True(t, b.Total.IsZero())
	assert.True(t, b.Available.IsZero())

	_, err = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "release", "повтор")
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved)

	got, err = f.orders.GetOrder(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusResolvedRefund, got.Status)
	unchanged, err := f.disputes.GetDispute(f.ctx, dispute.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusResolvedRefund, unchanged.Status)
	require.NotNil(t, unchanged.ResolutionDetails)
	assert.Equal(t, "продавец не выдал ключ", *unchanged.ResolutionDetails)

	assert.Eventually(t, func() bool {
		return f.notifier.has(f.seller.UserID, events.EventDisputeResolved) &&
			f.notifier.has(f.buyer.UserID, events.EventDisputeResolved)
	}, time.Second, 10*time.Millisecond)
}

func TestDispute_ReleaseCreditsSeller(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("80.00")
	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "invalid_key", "")
	require.NoError(t, err)

	_, err = f.disputes.ReviewDispute(f.ctx, dispute.ID, f.admin)
	require.NoError(t, err)
	_, err = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "release", "ключ рабочий")
	require.NoError(t, err)

	b := f.balance()
	assert.True(t, b.Total.Equal(amount("80.00")))
	assert.True(t, b.Available.Equal(amount("80.00")))
}

func TestOpenDispute_Duplicate(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("10.00")
	_, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")
	require.NoError(t, err)

	_, err = f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")

	assert.ErrorIs(t, err, apperror.ErrDuplicateDispute)
}

func TestOpenDispute_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("10.00")

	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrDuplicateDispute)
	}
	assert.Equal(t, 1, ok)
}

func TestOpenDispute_Eligibility(t *testing.T) {
	f := newFixture(t)

	pending := f.pendingOrder("10.00")
	_, err := f.disputes.OpenDispute(f.ctx, pending.ID, f.buyer.UserID, "other", "")
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	paid := f.paidOrder("10.00")
	_, err = f.disputes.OpenDispute(f.ctx, paid.ID, f.seller.UserID, "other", "")
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	_, err = f.disputes.OpenDispute(f.ctx, paid.ID, f.buyer.UserID, "changed my mind", "")
	assert.True(t, apperror.IsValidation(err))

	_, err = f.disputes.OpenDispute(f.ctx, paid.ID, f.buyer.UserID, "other", strings.Repeat("я", 2001))
	assert.True(t, apperror.IsValidation(err))
}

func TestOpenDispute_CompletedOrderAfterWithdrawal(t *testing.T) {
	f := newFixture(t)
	f.saveDetails(f.seller.UserID)
	order := f.completedOrder("100.00")
	_, err := f.withdrawals.RequestWithdrawal(f.ctx, f.seller.UserID, amount("50.00"))
	require.NoError(t, err)

	_, err = f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "not_as_described", "")

	assert.ErrorIs(t, err, apperror.ErrNotEligible)
	got, err := f.orders.GetOrder(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, got.Status)
}

func TestOpenDispute_CompletedOrderFreezesFunds(t *testing.T) {
	f := newFixture(t)
	order := f.completedOrder("100.00")

	_, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "not_as_described", "")
	require.NoError(t, err)

	b := f.balance()
	assert.True(t, b.Total.IsZero())
	assert.True(t, b.Available.IsZero())
}

func TestCancelDispute_RestoresOrderStatus(t *testing.T) {
	f := newFixture(t)
	order := f.completedOrder("40.00")
	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")
	require.NoError(t, err)

	_, err = f.disputes.CancelDispute(f.ctx, dispute.ID, f.seller.UserID)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	cancelled, err := f.disputes.CancelDispute(f.ctx, dispute.ID, f.buyer.UserID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusCancelled, cancelled.Status)

	got, err := f.orders.GetOrder(f.ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, got.Status)
	assert.True(t, f.balance().Available.Equal(amount("40.00")))

	_, err = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "refund", "поздно")
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved)

	_, err = f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "снова")
	assert.NoError(t, err)
}

func TestCancelDispute_NotWhileInReview(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("40.00")
	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")
	require.NoError(t, err)
	_, err = f.disputes.ReviewDispute(f.ctx, dispute.ID, f.admin)
	require.NoError(t, err)

	_, err = f.disputes.CancelDispute(f.ctx, dispute.ID, f.buyer.UserID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.disputes.ReviewDispute(f.ctx, dispute.ID, f.admin)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestAdminOperations_RequireAdmin(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("40.00")
	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")
	require.NoError(t, err)

	_, err = f.disputes.ReviewDispute(f.ctx, dispute.ID, f.seller)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)
	_, err = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.buyer, "refund", "сам себе")
	assert.ErrorIs(t, err, apperror.ErrNotEligible)
	_, err = f.disputes.ListActiveDisputes(f.ctx, f.buyer, 10, 0)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	_, err = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "split", "пополам")
	assert.True(t, apperror.IsValidation(err))
	_, err = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "refund", " ")
	assert.True(t, apperror.IsValidation(err))
}

func TestResolveVersusConfirmRace(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("100.00")
	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var resolveErr, confirmErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, resolveErr = f.disputes.ResolveDispute(f.ctx, dispute.ID, f.admin, "refund", "возврат")
	}()
	go func() {
		defer wg.Done()
		_, _, confirmErr = f.orders.ConfirmPayment(f.ctx, order.ID, "")
	}()
	wg.Wait()

	require.NoError(t, resolveErr)
	require.NoError(t, confirmErr)
	got, err := f.orders.GetOrder(f.ctx, order.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusResolvedRefund, got.Status)
}

func TestDisputeReads(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("10.00")
	dispute, err := f.disputes.OpenDispute(f.ctx, order.ID, f.buyer.UserID, "other", "")
	require.NoError(t, err)

	byOrder, err := f.disputes.GetDisputeByOrder(f.ctx, order.ID, f.seller)
	require.NoError(t, err)
	assert.Equal(t, dispute.ID, byOrder.ID)

	_, err = f.disputes.GetDispute(f.ctx, dispute.ID, models.Actor{UserID: uuid.New(), Role: models.RoleUser})
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	mine, err := f.disputes.ListUserDisputes(f.ctx, f.seller.UserID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	queue, err := f.disputes.ListActiveDisputes(f.ctx, f.admin, 10, 0)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}
