package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/market-escrow/internal/repository"
)

// CalculateBalance выводит баланс продавца из заказов и заявок на вывод.
//
//	total     = сумма заказов в completed и resolved_release
//	pending   = сумма заказов в paid
//	available = total − заявки в pending и paid
//
// Заказы в disputed не входят ни в одно слагаемое. Выплаченные заявки
// уменьшают available, а не total, поэтому
// total = available + pending_withdrawals + paid_withdrawals.
func CalculateBalance(sellerID uuid.UUID, orders []models.Order, withdrawals []models.Withdrawal) models.Balance {
	b := models.Balance{
		SellerID:           sellerID,
		Total:              decimal.Zero,
		Pending:            decimal.Zero,
		PendingWithdrawals: decimal.Zero,
		PaidWithdrawals:    decimal.Zero,
	}

	for _, o := range orders {
		if o.SellerID != sellerID {
			continue
		}
		switch {
		case o.Status.CountsTowardEarnings():
			b.Total = b.Total.Add(o.TotalAmount)
		case o.Status == valueobject.OrderStatusPaid:
			b.Pending = b.Pending.Add(o.TotalAmount)
		}
	}

	for _, w := range withdrawals {
		if w.UserID != sellerID {
			continue
		}
		switch w.Status {
		case valueobject.WithdrawalStatusPending:
			b.PendingWithdrawals = b.PendingWithdrawals.Add(w.Amount)
		case valueobject.WithdrawalStatusPaid:
			b.PaidWithdrawals = b.PaidWithdrawals.Add(w.Amount)
		}
	}

	b.Available = b.Total.Sub(valueobject.Sum(b.PendingWithdrawals, b.PaidWithdrawals))
	return b
}

// loadBalance считает баланс в рамках переданной транзакции.
func loadBalance(ctx context.Context, q repository.Queries, sellerID uuid.UUID) (models.Balance, error) {
	orders, err := q.ListSellerLedgerOrders(ctx, sellerID)
	if err != nil {
		return models.Balance{}, err
	}
	withdrawals, err := q.ListSellerLedgerWithdrawals(ctx, sellerID)
	if err != nil {
		return models.Balance{}, err
	}
	return CalculateBalance(sellerID, orders, withdrawals), nil
}

// BalanceService отдаёт баланс, пересчитанный на момент запроса.
type BalanceService struct {
	store repository.Store
}

func NewBalanceService(store repository.Store) *BalanceService {
	return &BalanceService{store: store}
}

func (s *BalanceService) GetBalance(ctx context.Context, sellerID uuid.UUID) (*models.Balance, error) {
	var balance models.Balance
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		balance, err = loadBalance(ctx, q, sellerID)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}
	return &balance, nil
}
