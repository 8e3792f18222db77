package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
)

type Withdrawal struct {
	ID          uuid.UUID                    `db:"id" json:"id"`
	UserID      uuid.UUID                    `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal              `db:"amount" json:"amount"`
	PixKey      string                       `db:"pix_key" json:"pix_key"`
	Status      valueobject.WithdrawalStatus `db:"status" json:"status"`
	AdminNote   *string                      `db:"admin_note" json:"admin_note,omitempty"`
	ProcessedBy *uuid.UUID                   `db:"processed_by" json:"processed_by,omitempty"`
	CreatedAt   time.Time                    `db:"created_at" json:"created_at"`
	PaidAt      *time.Time                   `db:"paid_at" json:"paid_at,omitempty"`
	ProcessedAt *time.Time                   `db:"processed_at" json:"processed_at,omitempty"`
}

// NewWithdrawal копирует PIX-ключ из реквизитов, чтобы их последующее
// изменение не затрагивало уже созданную заявку.
func NewWithdrawal(userID uuid.UUID, amount decimal.Decimal, pixKey string, now time.Time) *Withdrawal {
	return &Withdrawal{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		PixKey:    pixKey,
		Status:    valueobject.WithdrawalStatusPending,
		CreatedAt: now,
	}
}

// FinancialDetails - реквизиты продавца для выплат.
type FinancialDetails struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	PixKey    string    `db:"pix_key" json:"pix_key"`
	LegalName string    `db:"legal_name" json:"legal_name"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Balance - производное представление средств продавца, не хранится.
type Balance struct {
	SellerID           uuid.UUID       `json:"seller_id"`
	Total              decimal.Decimal `json:"total"`
	Available          decimal.Decimal `json:"available"`
	Pending            decimal.Decimal `json:"pending"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
	PaidWithdrawals    decimal.Decimal `json:"paid_withdrawals"`
}
