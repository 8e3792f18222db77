package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/market-escrow/internal/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps a page of items
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResponse never returns null items
func NewListResponse[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: limit, Offset: offset}
}

// CreateOrderResponse returns the order together with the payment reference
type CreateOrderResponse struct {
	*models.Order
	PaymentReference string `json:"payment_reference"`
}

// PaymentIntentResponse represents a gateway payment intent
type PaymentIntentResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	PaymentReference string    `json:"payment_reference"`
}

// BalanceResponse represents a seller balance with fixed two-digit amounts
type BalanceResponse struct {
	SellerID           uuid.UUID `json:"seller_id"`
	Total              string    `json:"total"`
	Available          string    `json:"available"`
	Pending            string    `json:"pending"`
	PendingWithdrawals string    `json:"pending_withdrawals"`
	PaidWithdrawals    string    `json:"paid_withdrawals"`
}

// NewBalanceResponse formats a balance for the API
func NewBalanceResponse(b *models.Balance) BalanceResponse {
	return BalanceResponse{
		SellerID:           b.SellerID,
		Total:              b.Total.StringFixed(2),
		Available:          b.Available.StringFixed(2),
		Pending:            b.Pending.StringFixed(2),
		PendingWithdrawals: b.PendingWithdrawals.StringFixed(2),
		PaidWithdrawals:    b.PaidWithdrawals.StringFixed(2),
	}
}

// WebhookAck acknowledges a gateway callback
type WebhookAck struct {
	Status  string     `json:"status"`
	OrderID *uuid.UUID `json:"order_id,omitempty"`
}

// UnreadCountResponse represents the number of unread notifications
type UnreadCountResponse struct {
	Count int `json:"count"`
}
