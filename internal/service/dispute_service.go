package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/market-escrow/internal/repository"
)

const maxDisputeDescription = 2000

// DisputeService ведёт споры покупателя по оплаченным заказам.
type DisputeService struct {
	store    repository.Store
	notifier events.Notifier
	now      Clock
}

func NewDisputeService(store repository.Store, notifier events.Notifier) *DisputeService {
	return &DisputeService{store: store, notifier: notifier, now: time.Now}
}

func (s *DisputeService) WithClock(now Clock) *DisputeService {
	s.now = now
	return s
}

// OpenDispute замораживает заказ в статусе disputed. Для завершённого
// заказа средства должны быть ещё не выведены продавцом.
func (s *DisputeService) OpenDispute(ctx context.Context, orderID, buyerID uuid.UUID, reason, description string) (*models.Dispute, error) {
	disputeReason, err := valueobject.NewDisputeReason(reason)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDisputeDescription {
		return nil, apperror.Validation(fmt.Sprintf("описание не длиннее %d символов", maxDisputeDescription))
	}

	var dispute *models.Dispute
	err = s.store.WithTx(ctx, func(q repository.Queries) error {
		order, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != buyerID {
			return apperror.NotEligible("открыть спор может только покупатель")
		}

		if _, err := q.GetActiveDisputeByOrder(ctx, orderID); err == nil {
			return apperror.ErrDuplicateDispute
		} else if !errors.Is(err, repository.ErrDisputeNotFound) {
			return err
		}

		if order.Status != valueobject.OrderStatusPaid && order.Status != valueobject.OrderStatusCompleted {
			return apperror.NotEligible(fmt.Sprintf("спор недоступен для заказа в статусе %s", order.Status))
		}

		if order.Status == valueobject.OrderStatusCompleted {
			if err := q.LockSeller(ctx, order.SellerID); err != nil {
				return err
			}
			balance, err := loadBalance(ctx, q, order.SellerID)
			if err != nil {
				return err
			}
			if balance.Available.LessThan(order.TotalAmount) {
				return apperror.NotEligible("средства по заказу уже выведены продавцом")
			}
		}

		now := s.now()
		dispute = models.NewDispute(order, disputeReason, description, now)
		if err := q.CreateDispute(ctx, dispute); err != nil {
			return err
		}
		if err := q.UpdateOrderStatus(ctx, orderID, order.Status, valueobject.OrderStatusDisputed, now); err != nil {
			return err
		}
		return q.AddOrderHistory(ctx, models.NewOrderHistory(orderID, &buyerID, models.HistoryActionDisputeOpened, order.Status, valueobject.OrderStatusDisputed, now))
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}

	logger.Log.WithFields(logrus.Fields{
		"dispute_id": dispute.ID,
		"order_id":   orderID,
		"reason":     dispute.Reason,
	}).Info("открыт спор")

	notifyAfterCommit(s.notifier, disputeEvent(events.EventDisputeOpened, dispute), dispute.BuyerID, dispute.SellerID)
	return dispute, nil
}

// ReviewDispute берёт открытый спор в работу.
func (s *DisputeService) ReviewDispute(ctx context.Context, disputeID uuid.UUID, admin models.Actor) (*models.Dispute, error) {
	if !admin.IsAdmin() {
		return nil, apperror.NotEligible("действие доступно только администратору")
	}

	var dispute *models.Dispute
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetDisputeForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return apperror.ErrAlreadyResolved
		}
		if !current.Status.CanTransitionTo(valueobject.DisputeStatusInReview) {
			return apperror.InvalidTransition("спор", string(current.Status), string(valueobject.DisputeStatusInReview))
		}

		now := s.now()
		current.Status = valueobject.DisputeStatusInReview
		current.UpdatedAt = now
		if err := q.UpdateDispute(ctx, current, valueobject.DisputeStatusOpen); err != nil {
			return err
		}
		dispute = current
		return q.AddOrderHistory(ctx, models.NewOrderHistory(current.OrderID, admin.HistoryUserID(), models.HistoryActionDisputeInReview, valueobject.DisputeStatusOpen, valueobject.DisputeStatusInReview, now))
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrDisputeNotFound)
	}

	logger.Log.WithFields(logrus.Fields{"dispute_id": disputeID, "admin_id": admin.UserID}).Info("спор взят в работу")
	notifyAfterCommit(s.notifier, disputeEvent(events.EventDisputeInReview, dispute), dispute.BuyerID, dispute.SellerID)
	return dispute, nil
}

// ResolveDispute закрывает спор решением refund или release. Заказ и спор
// меняются в одной транзакции.
func (s *DisputeService) ResolveDispute(ctx context.Context, disputeID uuid.UUID, admin models.Actor, outcome, details string) (*models.Dispute, error) {
	if !admin.IsAdmin() {
		return nil, apperror.NotEligible("действие доступно только администратору")
	}
	resolution, err := valueobject.NewResolution(outcome)
	if err != nil {
		return nil, err
	}
	details = strings.TrimSpace(details)
	if details == "" {
		return nil, apperror.Validation("укажите обоснование решения")
	}

	var dispute *models.Dispute
	err = s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetDisputeForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return apperror.ErrAlreadyResolved
		}

		order, err := q.GetOrderForUpdate(ctx, current.OrderID)
		if err != nil {
			return err
		}
		disputeStatus, orderStatus := resolution.Statuses()
		if !order.Status.CanTransitionTo(orderStatus) {
			return apperror.InvalidTransition("заказ", string(order.Status), string(orderStatus))
		}

		now := s.now()
		from := current.Status
		current.Status = disputeStatus
		current.ResolutionDetails = &details
		current.ResolvedBy = &admin.UserID
		current.ResolvedAt = &now
		current.UpdatedAt = now
		if err := q.UpdateDispute(ctx, current, from); err != nil {
			return err
		}
		if err := q.UpdateOrderStatus(ctx, order.ID, order.Status, orderStatus, now); err != nil {
			return err
		}
		dispute = current
		return q.AddOrderHistory(ctx, models.NewOrderHistory(order.ID, admin.HistoryUserID(), models.HistoryActionDisputeResolved, order.Status, orderStatus, now))
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrDisputeNotFound)
	}

	logger.Log.WithFields(logrus.Fields{
		"dispute_id": disputeID,
		"order_id":   dispute.OrderID,
		"outcome":    resolution,
		"admin_id":   admin.UserID,
	}).Info("спор разрешён")

	event := disputeEvent(events.EventDisputeResolved, dispute)
	event.Payload["outcome"] = string(resolution)
	notifyAfterCommit(s.notifier, event, dispute.BuyerID, dispute.SellerID)
	return dispute, nil
}

// CancelDispute отзывает открытый спор и возвращает заказ в прежний статус.
func (s *DisputeService) CancelDispute(ctx context.Context, disputeID, buyerID uuid.UUID) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetDisputeForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if current.BuyerID != buyerID {
			return apperror.NotEligible("отозвать спор может только покупатель")
		}
		if current.Status.IsTerminal() {
			return apperror.ErrAlreadyResolved
		}
		if current.Status != valueobject.DisputeStatusOpen {
			return apperror.InvalidTransition("спор", string(current.Status), string(valueobject.DisputeStatusCancelled))
		}

		order, err := q.GetOrderForUpdate(ctx, current.OrderID)
		if err != nil {
			return err
		}
		restore := current.OrderStatusBefore
		if !order.Status.CanTransitionTo(restore) {
			return apperror.InvalidTransition("заказ", string(order.Status), string(restore))
		}

		now := s.now()
		current.Status = valueobject.DisputeStatusCancelled
		current.ResolvedAt = &now
		current.UpdatedAt = now
		if err := q.UpdateDispute(ctx, current, valueobject.DisputeStatusOpen); err != nil {
			return err
		}
		if err := q.UpdateOrderStatus(ctx, order.ID, order.Status, restore, now); err != nil {
			return err
		}
		dispute = current
		return q.AddOrderHistory(ctx, models.NewOrderHistory(order.ID, &buyerID, models.HistoryActionDisputeCancelled, order.Status, restore, now))
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrDisputeNotFound)
	}

	logger.Log.WithFields(logrus.Fields{"dispute_id": disputeID, "order_id": dispute.OrderID}).Info("спор отозван")
	notifyAfterCommit(s.notifier, disputeEvent(events.EventDisputeCancelled, dispute), dispute.BuyerID, dispute.SellerID)
	return dispute, nil
}

func (s *DisputeService) GetDispute(ctx context.Context, disputeID uuid.UUID, actor models.Actor) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		dispute, err = q.GetDispute(ctx, disputeID)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrDisputeNotFound)
	}
	if !actor.IsAdmin() && !dispute.IsParticipant(actor.UserID) {
		return nil, apperror.NotEligible("нет доступа к спору")
	}
	return dispute, nil
}

// GetDisputeByOrder возвращает последний спор по заказу.
func (s *DisputeService) GetDisputeByOrder(ctx context.Context, orderID uuid.UUID, actor models.Actor) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		dispute, err = q.GetLatestDisputeByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrDisputeNotFound)
	}
	if !actor.IsAdmin() && !dispute.IsParticipant(actor.UserID) {
		return nil, apperror.NotEligible("нет доступа к спору")
	}
	return dispute, nil
}

func (s *DisputeService) ListUserDisputes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	limit, offset = normalizePage(limit, offset)

	var disputes []models.Dispute
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		disputes, err = q.ListDisputesByUser(ctx, userID, limit, offset)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrDisputeNotFound)
	}
	return disputes, nil
}

// ListActiveDisputes - очередь администратора, старые первыми.
func (s *DisputeService) ListActiveDisputes(ctx context.Context, admin models.Actor, limit, offset int) ([]models.Dispute, error) {
	if !admin.IsAdmin() {
		return nil, apperror.NotEligible("действие доступно только администратору")
	}
	limit, offset = normalizePage(limit, offset)

	var disputes []models.Dispute
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		disputes, err = q.ListActiveDisputes(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrDisputeNotFound)
	}
	return disputes, nil
}

func disputeEvent(eventType string, d *models.Dispute) events.Event {
	return events.Event{
		Type: eventType,
		Payload: map[string]any{
			"dispute_id": d.ID,
			"order_id":   d.OrderID,
			"status":     d.Status,
		},
	}
}
