package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest represents the request to buy a product
type CreateOrderRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gte=1"`
}

// OpenDisputeRequest represents the buyer's complaint about an order
type OpenDisputeRequest struct {
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

// ResolveDisputeRequest represents the admin decision on a dispute
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=refund release"`
	Details    string `json:"details" binding:"required"`
}

// CreateWithdrawalRequest represents a payout request
type CreateWithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RejectWithdrawalRequest represents the admin rejection of a payout
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// FinancialDetailsRequest represents the seller's payout details
type FinancialDetailsRequest struct {
	PixKey    string `json:"pix_key" binding:"required"`
	LegalName string `json:"legal_name" binding:"required"`
	TaxID     string `json:"tax_id" binding:"required"`
}
