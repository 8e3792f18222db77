package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-escrow/internal/models"
)

func (q *queries) AddOrderHistory(ctx context.Context, entry *models.OrderHistory) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO order_history (id, order_id, user_id, action, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.OrderID, entry.UserID, entry.Action, nullableJSON(entry.OldValue), nullableJSON(entry.NewValue), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("order history repository: add %w", err)
	}
	return nil
}

func (q *queries) ListOrderHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var history []models.OrderHistory
	if err := sqlx.SelectContext(ctx, q.db, &history, `
		SELECT * FROM order_history WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID); err != nil {
		return nil, fmt.Errorf("order history repository: list %w", err)
	}
	return history, nil
}

// nullableJSON превращает пустое значение в NULL вместо пустой строки.
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
