package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

func (q *queries) CreateDispute(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (id, order_id, buyer_id, seller_id, reason, description, status,
			order_status_before, created_at, updated_at)
		VALUES (:id, :order_id, :buyer_id, :seller_id, :reason, :description, :status,
			:order_status_before, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, d); err != nil {
		// ux_disputes_active_order допускает один активный спор на заказ.
		if common.IsUniqueViolation(err) {
			return ErrActiveDisputeExists
		}
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

func (q *queries) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, q.db, "disputes", id, ErrDisputeNotFound)
}

func (q *queries) GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByIDForUpdate[models.Dispute](ctx, q.db, "disputes", id, ErrDisputeNotFound)
}

func (q *queries) GetActiveDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := sqlx.GetContext(ctx, q.db, &d, `
		SELECT * FROM disputes WHERE order_id = $1 AND status IN ('open', 'in_review')
	`, orderID)
	if err != nil {
		return nil, notFoundOr(err, ErrDisputeNotFound, "dispute repository: get active")
	}
	return &d, nil
}

func (q *queries) GetLatestDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := sqlx.GetContext(ctx, q.db, &d, `
		SELECT * FROM disputes WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1
	`, orderID)
	if err != nil {
		return nil, notFoundOr(err, ErrDisputeNotFound, "dispute repository: get latest")
	}
	return &d, nil
}

func (q *queries) UpdateDispute(ctx context.Context, d *models.Dispute, from valueobject.DisputeStatus) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE disputes
		SET status = $3, resolution_details = $4, resolved_by = $5, resolved_at = $6, updated_at = $7
		WHERE id = $1 AND status = $2
	`, d.ID, from, d.Status, d.ResolutionDetails, d.ResolvedBy, d.ResolvedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: update %w", err)
	}
	return common.ExpectAffected(result, ErrStatusConflict)
}

func (q *queries) ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	if err := sqlx.SelectContext(ctx, q.db, &disputes, `
		SELECT * FROM disputes
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

func (q *queries) ListActiveDisputes(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	if err := sqlx.SelectContext(ctx, q.db, &disputes, `
		SELECT * FROM disputes
		WHERE status IN ('open', 'in_review')
		ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list active %w", err)
	}
	return disputes, nil
}
