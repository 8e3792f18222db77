package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/market-escrow/internal/repository"
	"github.com/ignatzorin/market-escrow/internal/validation"
)

// WithdrawalService резервирует и выплачивает доступные средства продавца.
type WithdrawalService struct {
	store     repository.Store
	notifier  events.Notifier
	minAmount decimal.Decimal
	now       Clock
}

func NewWithdrawalService(store repository.Store, notifier events.Notifier, minAmount decimal.Decimal) *WithdrawalService {
	return &WithdrawalService{store: store, notifier: notifier, minAmount: minAmount, now: time.Now}
}

func (s *WithdrawalService) WithClock(now Clock) *WithdrawalService {
	s.now = now
	return s
}

// RequestWithdrawal создаёт заявку, если сумма не превышает available.
// Проверка и вставка выполняются под блокировкой продавца, поэтому
// параллельные заявки не могут вместе превысить баланс.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal) (*models.Withdrawal, error) {
	amount, err := valueobject.NewAmount(amount)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(s.minAmount) {
		return nil, apperror.Validation(fmt.Sprintf("минимальная сумма вывода: %s", s.minAmount.StringFixed(2)))
	}

	var withdrawal *models.Withdrawal
	err = s.store.WithTx(ctx, func(q repository.Queries) error {
		details, err := q.GetFinancialDetails(ctx, sellerID)
		if errors.Is(err, repository.ErrFinancialDetailsNotFound) {
			return apperror.ErrMissingFinancialDetails
		}
		if err != nil {
			return err
		}

		if err := q.LockSeller(ctx, sellerID); err != nil {
			return err
		}
		balance, err := loadBalance(ctx, q, sellerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance.Available) {
			return apperror.New(apperror.ErrCodeInsufficientBalance,
				fmt.Sprintf("недостаточно доступных средств: доступно %s", balance.Available.StringFixed(2)))
		}

		withdrawal = models.NewWithdrawal(sellerID, amount, details.PixKey, s.now())
		return q.CreateWithdrawal(ctx, withdrawal)
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrWithdrawalNotFound)
	}

	logger.Log.WithFields(logrus.Fields{
		"withdrawal_id": withdrawal.ID,
		"user_id":       sellerID,
		"amount":        amount.StringFixed(2),
	}).Info("создана заявка на вывод")

	notifyAfterCommit(s.notifier, withdrawalEvent(events.EventWithdrawalRequested, withdrawal), sellerID)
	return withdrawal, nil
}

// ApproveWithdrawal отмечает заявку выплаченной.
func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, withdrawalID uuid.UUID, admin models.Actor) (*models.Withdrawal, error) {
	return s.process(ctx, withdrawalID, admin, valueobject.WithdrawalStatusPaid, "")
}

// RejectWithdrawal отклоняет заявку и возвращает сумму в available.
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, withdrawalID uuid.UUID, admin models.Actor, reason string) (*models.Withdrawal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("укажите причину отклонения")
	}
	return s.process(ctx, withdrawalID, admin, valueobject.WithdrawalStatusRejected, reason)
}

func (s *WithdrawalService) process(ctx context.Context, withdrawalID uuid.UUID, admin models.Actor, to valueobject.WithdrawalStatus, note string) (*models.Withdrawal, error) {
	if !admin.IsAdmin() {
		return nil, apperror.NotEligible("действие доступно только администратору")
	}

	var withdrawal *models.Withdrawal
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(to) {
			return apperror.InvalidTransition("заявка", string(current.Status), string(to))
		}

		now := s.now()
		from := current.Status
		current.Status = to
		current.ProcessedBy = &admin.UserID
		current.ProcessedAt = &now
		if note != "" {
			current.AdminNote = &note
		}
		if to == valueobject.WithdrawalStatusPaid {
			current.PaidAt = &now
		}
		withdrawal = current
		return q.UpdateWithdrawal(ctx, current, from)
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrWithdrawalNotFound)
	}

	logger.Log.WithFields(logrus.Fields{
		"withdrawal_id": withdrawalID,
		"status":        to,
		"admin_id":      admin.UserID,
	}).Info("заявка на вывод обработана")

	eventType := events.EventWithdrawalPaid
	if to == valueobject.WithdrawalStatusRejected {
		eventType = events.EventWithdrawalRejected
	}
	notifyAfterCommit(s.notifier, withdrawalEvent(eventType, withdrawal), withdrawal.UserID)
	return withdrawal, nil
}

func (s *WithdrawalService) ListUserWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	limit, offset = normalizePage(limit, offset)

	var withdrawals []models.Withdrawal
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		withdrawals, err = q.ListWithdrawalsByUser(ctx, userID, limit, offset)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrWithdrawalNotFound)
	}
	return withdrawals, nil
}

// ListWithdrawals - очередь администратора по статусу, по умолчанию pending.
func (s *WithdrawalService) ListWithdrawals(ctx context.Context, admin models.Actor, status string, limit, offset int) ([]models.Withdrawal, error) {
	if !admin.IsAdmin() {
		return nil, apperror.NotEligible("действие доступно только администратору")
	}
	if status == "" {
		status = string(valueobject.WithdrawalStatusPending)
	}
	st, err := valueobject.NewWithdrawalStatus(status)
	if err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	var withdrawals []models.Withdrawal
	err = s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		withdrawals, err = q.ListWithdrawalsByStatus(ctx, st, limit, offset)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrWithdrawalNotFound)
	}
	return withdrawals, nil
}

// FinancialDetailsInput - реквизиты, присланные продавцом.
type FinancialDetailsInput struct {
	PixKey    string
	LegalName string
	TaxID     string
}

func (s *WithdrawalService) SaveFinancialDetails(ctx context.Context, userID uuid.UUID, in FinancialDetailsInput) (*models.FinancialDetails, error) {
	details := &models.FinancialDetails{
		UserID:    userID,
		PixKey:    strings.TrimSpace(in.PixKey),
		LegalName: strings.TrimSpace(in.LegalName),
		TaxID:     validation.DigitsOnly(in.TaxID),
		UpdatedAt: s.now(),
	}
	if err := validation.ValidatePixKey(details.PixKey); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateLength("ФИО или название", details.LegalName, 2, 200); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateTaxID(details.TaxID); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		return q.UpsertFinancialDetails(ctx, details)
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrMissingFinancialDetails)
	}
	return details, nil
}

func (s *WithdrawalService) GetFinancialDetails(ctx context.Context, userID uuid.UUID) (*models.FinancialDetails, error) {
	var details *models.FinancialDetails
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		details, err = q.GetFinancialDetails(ctx, userID)
		return err
	})
	if errors.Is(err, repository.ErrFinancialDetailsNotFound) {
		return nil, apperror.ErrMissingFinancialDetails
	}
	if err != nil {
		return nil, storeError(err, apperror.ErrMissingFinancialDetails)
	}
	return details, nil
}

func withdrawalEvent(eventType string, w *models.Withdrawal) events.Event {
	return events.Event{
		Type: eventType,
		Payload: map[string]any{
			"withdrawal_id": w.ID,
			"amount":        w.Amount.StringFixed(2),
			"status":        w.Status,
		},
	}
}
