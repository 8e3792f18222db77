package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/payment"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/market-escrow/internal/repository"
)

const (
	OrderRoleBuyer  = "buyer"
	OrderRoleSeller = "seller"
)

// OrderService управляет жизненным циклом заказа до момента спора.
type OrderService struct {
	store    repository.Store
	gateway  payment.Gateway
	notifier events.Notifier
	now      Clock
}

func NewOrderService(store repository.Store, gateway payment.Gateway, notifier events.Notifier) *OrderService {
	return &OrderService{store: store, gateway: gateway, notifier: notifier, now: time.Now}
}

// WithClock подменяет источник времени.
func (s *OrderService) WithClock(now Clock) *OrderService {
	s.now = now
	return s
}

// CreateOrder оформляет заказ по текущей цене товара.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*models.Order, error) {
	if quantity < 1 {
		return nil, apperror.Validation("количество должно быть не меньше 1")
	}

	var order *models.Order
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		product, err := q.GetProduct(ctx, productID)
		if err != nil {
			return storeError(err, apperror.ErrProductNotFound)
		}
		if !product.IsActive {
			return apperror.NotEligible("товар снят с продажи")
		}
		if product.SellerID == buyerID {
			return apperror.NotEligible("нельзя купить собственный товар")
		}
		if quantity < product.MinOrderQuantity {
			return apperror.Validation(fmt.Sprintf("минимальное количество для заказа: %d", product.MinOrderQuantity))
		}
		if product.Stock < quantity {
			return apperror.Validation("недостаточно товара на складе")
		}

		order = models.NewOrder(buyerID, product, quantity, s.now())
		if err := q.CreateOrder(ctx, order); err != nil {
			return err
		}
		return q.AddOrderHistory(ctx, models.NewOrderHistory(order.ID, &buyerID, models.HistoryActionCreated, nil, order.Status, s.now()))
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"buyer_id":  buyerID,
		"seller_id": order.SellerID,
		"total":     order.TotalAmount.StringFixed(2),
	}).Info("заказ создан")

	return order, nil
}

// CreatePaymentIntent создаёт платёж у провайдера для ожидающего заказа.
// Повторный вызов возвращает уже выданную ссылку.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, orderID, buyerID uuid.UUID) (string, error) {
	order, err := s.readOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.BuyerID != buyerID {
		return "", apperror.NotEligible("оплатить заказ может только покупатель")
	}
	if order.Status != valueobject.OrderStatusPending {
		return "", apperror.InvalidTransition("заказ", string(order.Status), string(valueobject.OrderStatusPaid))
	}
	if order.PaymentReference != nil {
		return *order.PaymentReference, nil
	}

	reference, err := s.gateway.CreateIntent(ctx, order.ID, order.TotalAmount, buyerID)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать платёж")
	}

	err = s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if current.Status != valueobject.OrderStatusPending {
			return apperror.InvalidTransition("заказ", string(current.Status), string(valueobject.OrderStatusPaid))
		}
		if current.PaymentReference != nil {
			reference = *current.PaymentReference
			return nil
		}
		if err := q.SetPaymentReference(ctx, orderID, reference); err != nil {
			return err
		}
		return q.AddOrderHistory(ctx, models.NewOrderHistory(orderID, &buyerID, models.HistoryActionPaymentIntent, nil, reference, s.now()))
	})
	if err != nil {
		return "", storeError(err, apperror.ErrOrderNotFound)
	}

	return reference, nil
}

// ConfirmPayment переводит заказ из pending в paid. Повторное подтверждение
// уже оплаченного заказа ничего не меняет; applied сообщает, был ли переход.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, reference string) (order *models.Order, applied bool, err error) {
	err = s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		order = current

		if reference != "" && current.PaymentReference != nil && *current.PaymentReference != reference {
			return apperror.ErrInvalidPaymentReference
		}
		if current.Status.IsPaymentConfirmed() {
			return nil
		}
		if current.Status != valueobject.OrderStatusPending {
			return apperror.InvalidTransition("заказ", string(current.Status), string(valueobject.OrderStatusPaid))
		}

		now := s.now()
		if err := q.UpdateOrderStatus(ctx, orderID, valueobject.OrderStatusPending, valueobject.OrderStatusPaid, now); err != nil {
			return err
		}
		if reference != "" && current.PaymentReference == nil {
			if err := q.SetPaymentReference(ctx, orderID, reference); err != nil {
				return err
			}
			order.PaymentReference = &reference
		}
		if err := q.AddOrderHistory(ctx, models.NewOrderHistory(orderID, nil, models.HistoryActionPaid, current.Status, valueobject.OrderStatusPaid, now)); err != nil {
			return err
		}

		order.Status = valueobject.OrderStatusPaid
		order.PaidAt = &now
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, storeError(err, apperror.ErrOrderNotFound)
	}

	log := logger.Log.WithFields(logrus.Fields{"order_id": orderID, "reference": reference})
	if !applied {
		log.WithField("status", order.Status).Info("повторное подтверждение оплаты пропущено")
		return order, false, nil
	}
	log.Info("оплата подтверждена")

	notifyAfterCommit(s.notifier, orderEvent(events.EventOrderPaid, order), order.BuyerID, order.SellerID)
	return order, true, nil
}

// ConfirmPaymentByReference находит заказ по ссылке платежа и подтверждает его.
func (s *OrderService) ConfirmPaymentByReference(ctx context.Context, reference string) (*models.Order, bool, error) {
	var orderID uuid.UUID
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		order, err := q.GetOrderByPaymentReference(ctx, reference)
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, false, storeError(err, apperror.ErrOrderNotFound)
	}
	return s.ConfirmPayment(ctx, orderID, reference)
}

// CompleteOrder переводит paid в completed и списывает остаток товара.
// Отрицательный остаток не блокирует завершение и возвращается как
// предупреждение в order.Warnings.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID uuid.UUID, actor models.Actor) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !actor.IsSystem() && current.BuyerID != actor.UserID {
			return apperror.NotEligible("подтвердить получение может только покупатель")
		}
		if current.Status != valueobject.OrderStatusPaid {
			return apperror.InvalidTransition("заказ", string(current.Status), string(valueobject.OrderStatusCompleted))
		}

		now := s.now()
		if err := q.UpdateOrderStatus(ctx, orderID, valueobject.OrderStatusPaid, valueobject.OrderStatusCompleted, now); err != nil {
			return err
		}
		if err := q.AddOrderHistory(ctx, models.NewOrderHistory(orderID, actor.HistoryUserID(), models.HistoryActionCompleted, current.Status, valueobject.OrderStatusCompleted, now)); err != nil {
			return err
		}

		current.Status = valueobject.OrderStatusCompleted
		current.CompletedAt = &now
		order = current

		stock, err := q.AdjustProductStock(ctx, current.ProductID, -current.Quantity)
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			order.Warnings = append(order.Warnings, "товар удалён, остаток не списан")
		case err != nil:
			return err
		case stock < 0:
			order.Warnings = append(order.Warnings, fmt.Sprintf("остаток товара стал отрицательным: %d", stock))
		}
		if len(order.Warnings) > 0 {
			return q.AddOrderHistory(ctx, models.NewOrderHistory(orderID, nil, models.HistoryActionStockAdjustWarned, nil, order.Warnings, now))
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}

	log := logger.Log.WithFields(logrus.Fields{"order_id": orderID, "actor_role": actor.Role})
	if len(order.Warnings) > 0 {
		log.WithField("warnings", order.Warnings).Warn("заказ завершён с предупреждением по остатку")
	} else {
		log.Info("заказ завершён")
	}

	notifyAfterCommit(s.notifier, orderEvent(events.EventOrderCompleted, order), order.BuyerID, order.SellerID)
	return order, nil
}

// CancelOrder отменяет неоплаченный заказ.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor models.Actor) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		current, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && current.BuyerID != actor.UserID {
			return apperror.NotEligible("отменить заказ может только покупатель")
		}
		if current.Status != valueobject.OrderStatusPending {
			return apperror.InvalidTransition("заказ", string(current.Status), string(valueobject.OrderStatusCancelled))
		}

		now := s.now()
		if err := q.UpdateOrderStatus(ctx, orderID, valueobject.OrderStatusPending, valueobject.OrderStatusCancelled, now); err != nil {
			return err
		}
		current.Status = valueobject.OrderStatusCancelled
		order = current
		return q.AddOrderHistory(ctx, models.NewOrderHistory(orderID, actor.HistoryUserID(), models.HistoryActionCancelled, valueobject.OrderStatusPending, valueobject.OrderStatusCancelled, now))
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}

	logger.Log.WithField("order_id", orderID).Info("заказ отменён")
	notifyAfterCommit(s.notifier, orderEvent(events.EventOrderCancelled, order), order.BuyerID, order.SellerID)
	return order, nil
}

// GetOrder доступен участникам заказа и администратору.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID, actor models.Actor) (*models.Order, error) {
	order, err := s.readOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !order.IsParticipant(actor.UserID) {
		return nil, apperror.NotEligible("нет доступа к заказу")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Order, error) {
	limit, offset = normalizePage(limit, offset)

	var orders []models.Order
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		switch role {
		case OrderRoleSeller:
			orders, err = q.ListOrdersBySeller(ctx, userID, limit, offset)
		case OrderRoleBuyer, "":
			orders, err = q.ListOrdersByBuyer(ctx, userID, limit, offset)
		default:
			return apperror.Validation("role должен быть buyer или seller")
		}
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}
	return orders, nil
}

func (s *OrderService) GetOrderHistory(ctx context.Context, orderID uuid.UUID, actor models.Actor) ([]models.OrderHistory, error) {
	if _, err := s.GetOrder(ctx, orderID, actor); err != nil {
		return nil, err
	}

	var history []models.OrderHistory
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		history, err = q.ListOrderHistory(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}
	return history, nil
}

// ListClearableOrders возвращает оплаченные заказы старше cutoff.
func (s *OrderService) ListClearableOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		orders, err = q.ListClearableOrders(ctx, cutoff, limit)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}
	return orders, nil
}

func (s *OrderService) readOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		order, err = q.GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}
	return order, nil
}

func orderEvent(eventType string, o *models.Order) events.Event {
	return events.Event{
		Type: eventType,
		Payload: map[string]any{
			"order_id":     o.ID,
			"status":       o.Status,
			"total_amount": o.TotalAmount.StringFixed(2),
		},
	}
}
