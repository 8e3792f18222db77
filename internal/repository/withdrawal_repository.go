package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

func (q *queries) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, user_id, amount, pix_key, status, created_at)
		VALUES (:id, :user_id, :amount, :pix_key, :status, :created_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, w); err != nil {
		return fmt.Errorf("withdrawal repository: create %w", err)
	}
	return nil
}

func (q *queries) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return common.GetByID[models.Withdrawal](ctx, q.db, "withdrawals", id, ErrWithdrawalNotFound)
}

func (q *queries) UpdateWithdrawal(ctx context.Context, w *models.Withdrawal, from valueobject.WithdrawalStatus) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = $3, admin_note = $4, processed_by = $5, paid_at = $6, processed_at = $7
		WHERE id = $1 AND status = $2
	`, w.ID, from, w.Status, w.AdminNote, w.ProcessedBy, w.PaidAt, w.ProcessedAt)
	if err != nil {
		return fmt.Errorf("withdrawal repository: update %w", err)
	}
	return common.ExpectAffected(result, ErrStatusConflict)
}

func (q *queries) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	if err := sqlx.SelectContext(ctx, q.db, &withdrawals, `
		SELECT * FROM withdrawals WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("withdrawal repository: list by user %w", err)
	}
	return withdrawals, nil
}

func (q *queries) ListWithdrawalsByStatus(ctx context.Context, status valueobject.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	if err := sqlx.SelectContext(ctx, q.db, &withdrawals, `
		SELECT * FROM withdrawals WHERE status = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3
	`, status, limit, offset); err != nil {
		return nil, fmt.Errorf("withdrawal repository: list by status %w", err)
	}
	return withdrawals, nil
}

func (q *queries) ListSellerLedgerWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	if err := sqlx.SelectContext(ctx, q.db, &withdrawals, `
		SELECT * FROM withdrawals WHERE user_id = $1 AND status IN ('pending', 'paid')
	`, userID); err != nil {
		return nil, fmt.Errorf("withdrawal repository: list ledger withdrawals %w", err)
	}
	return withdrawals, nil
}

func (q *queries) GetFinancialDetails(ctx context.Context, userID uuid.UUID) (*models.FinancialDetails, error) {
	return common.GetByField[models.FinancialDetails](ctx, q.db, "financial_details", "user_id", userID, ErrFinancialDetailsNotFound)
}

func (q *queries) UpsertFinancialDetails(ctx context.Context, fd *models.FinancialDetails) error {
	err := sqlx.GetContext(ctx, q.db, &fd.CreatedAt, `
		INSERT INTO financial_details (user_id, pix_key, legal_name, tax_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET pix_key = EXCLUDED.pix_key,
			legal_name = EXCLUDED.legal_name,
			tax_id = EXCLUDED.tax_id,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`, fd.UserID, fd.PixKey, fd.LegalName, fd.TaxID, fd.UpdatedAt)
	if err != nil {
		return fmt.Errorf("financial details repository: upsert %w", err)
	}
	return nil
}

func notFoundOr(err, notFound error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
