package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

func (q *queries) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return common.GetByID[models.Product](ctx, q.db, "products", id, ErrProductNotFound)
}

func (q *queries) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, seller_id, title, unit_price, stock, min_order_quantity,
			is_wholesale, is_active, created_at, updated_at)
		VALUES (:id, :seller_id, :title, :unit_price, :stock, :min_order_quantity,
			:is_wholesale, :is_active, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, p); err != nil {
		return fmt.Errorf("product repository: create %w", err)
	}
	return nil
}

// AdjustProductStock не ограничивает остаток снизу: отрицательное значение
// обрабатывает вызывающий код.
func (q *queries) AdjustProductStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var stock int
	err := sqlx.GetContext(ctx, q.db, &stock, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING stock
	`, id, delta)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("product repository: adjust stock %w", err)
	}
	return stock, nil
}
