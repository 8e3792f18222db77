package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
)

type Dispute struct {
	ID                uuid.UUID                 `db:"id" json:"id"`
	OrderID           uuid.UUID                 `db:"order_id" json:"order_id"`
	BuyerID           uuid.UUID                 `db:"buyer_id" json:"buyer_id"`
	SellerID          uuid.UUID                 `db:"seller_id" json:"seller_id"`
	Reason            valueobject.DisputeReason `db:"reason" json:"reason"`
	Description       string                    `db:"description" json:"description"`
	Status            valueobject.DisputeStatus `db:"status" json:"status"`
	OrderStatusBefore valueobject.OrderStatus   `db:"order_status_before" json:"order_status_before"`
	ResolutionDetails *string                   `db:"resolution_details" json:"resolution_details,omitempty"`
	ResolvedBy        *uuid.UUID                `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt         time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time                 `db:"updated_at" json:"updated_at"`
	ResolvedAt        *time.Time                `db:"resolved_at" json:"resolved_at,omitempty"`
}

func NewDispute(order *Order, reason valueobject.DisputeReason, description string, now time.Time) *Dispute {
	return &Dispute{
		ID:                uuid.New(),
		OrderID:           order.ID,
		BuyerID:           order.BuyerID,
		SellerID:          order.SellerID,
		Reason:            reason,
		Description:       description,
		Status:            valueobject.DisputeStatusOpen,
		OrderStatusBefore: order.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (d *Dispute) IsParticipant(userID uuid.UUID) bool {
	return d.BuyerID == userID || d.SellerID == userID
}
