package events

import (
	"context"

	"github.com/google/uuid"
)

// Типы событий, доставляемых участникам сделки.
const (
	EventOrderCreated        = "order.created"
	EventOrderPaid           = "order.paid"
	EventOrderCompleted      = "order.completed"
	EventOrderCancelled      = "order.cancelled"
	EventDisputeOpened       = "dispute.opened"
	EventDisputeInReview     = "dispute.in_review"
	EventDisputeResolved     = "dispute.resolved"
	EventDisputeCancelled    = "dispute.cancelled"
	EventWithdrawalRequested = "withdrawal.requested"
	EventWithdrawalPaid      = "withdrawal.paid"
	EventWithdrawalRejected  = "withdrawal.rejected"
)

// NotificationsChannel - канал Redis для межпроцессной доставки.
const NotificationsChannel = "escrow:notifications"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Envelope - событие с адресатом.
type Envelope struct {
	UserID uuid.UUID `json:"user_id"`
	Event  Event     `json:"event"`
}

// Notifier доставляет событие пользователю. Доставка best-effort:
// ошибка не откатывает уже зафиксированное изменение.
type Notifier interface {
	Publish(ctx context.Context, userID uuid.UUID, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(Envelope)) error
}

// Fanout рассылает событие всем вложенным получателям и возвращает
// первую ошибку.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, userID uuid.UUID, event Event) error {
	var firstErr error
	for _, n := range f {
		if err := n.Publish(ctx, userID, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
