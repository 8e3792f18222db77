package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	HistoryActionCreated           = "created"
	HistoryActionPaymentIntent     = "payment_intent"
	HistoryActionPaid              = "paid"
	HistoryActionCompleted         = "completed"
	HistoryActionCancelled         = "cancelled"
	HistoryActionDisputeOpened     = "dispute_opened"
	HistoryActionDisputeInReview   = "dispute_in_review"
	HistoryActionDisputeResolved   = "dispute_resolved"
	HistoryActionDisputeCancelled  = "dispute_cancelled"
	HistoryActionStockAdjustWarned = "stock_warning"
)

// OrderHistory - запись журнала изменений заказа. Пишется в той же
// транзакции, что и само изменение.
type OrderHistory struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	UserID    *uuid.UUID      `db:"user_id" json:"user_id,omitempty"`
	Action    string          `db:"action" json:"action"`
	OldValue  json.RawMessage `db:"old_value" json:"old_value,omitempty"`
	NewValue  json.RawMessage `db:"new_value" json:"new_value,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

func NewOrderHistory(orderID uuid.UUID, userID *uuid.UUID, action string, oldValue, newValue any, now time.Time) *OrderHistory {
	return &OrderHistory{
		ID:        uuid.New(),
		OrderID:   orderID,
		UserID:    userID,
		Action:    action,
		OldValue:  marshalHistoryValue(oldValue),
		NewValue:  marshalHistoryValue(newValue),
		CreatedAt: now,
	}
}

func marshalHistoryValue(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
