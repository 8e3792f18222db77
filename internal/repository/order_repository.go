package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

func (q *queries) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, buyer_id, seller_id, product_id, quantity, unit_price, total_amount,
			status, payment_reference, created_at, updated_at)
		VALUES (:id, :buyer_id, :seller_id, :product_id, :quantity, :unit_price, :total_amount,
			:status, :payment_reference, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, order); err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}
	return nil
}

func (q *queries) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return common.GetByID[models.Order](ctx, q.db, "orders", id, ErrOrderNotFound)
}

func (q *queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return common.GetByIDForUpdate[models.Order](ctx, q.db, "orders", id, ErrOrderNotFound)
}

func (q *queries) GetOrderByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	return common.GetByField[models.Order](ctx, q.db, "orders", "payment_reference", reference, ErrOrderNotFound)
}

func (q *queries) SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE orders SET payment_reference = $2, updated_at = NOW() WHERE id = $1
	`, id, reference)
	if err != nil {
		return fmt.Errorf("order repository: set payment reference %w", err)
	}
	return common.ExpectAffected(result, ErrOrderNotFound)
}

func (q *queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to valueobject.OrderStatus, at time.Time) error {
	markPaid := from == valueobject.OrderStatusPending && to == valueobject.OrderStatusPaid
	markCompleted := from == valueobject.OrderStatusPaid && to == valueobject.OrderStatusCompleted

	result, err := q.db.ExecContext(ctx, `
		UPDATE orders SET
			status = $3,
			updated_at = $4,
			paid_at = CASE WHEN $5 THEN COALESCE(paid_at, $4) ELSE paid_at END,
			completed_at = CASE WHEN $6 THEN $4 ELSE completed_at END
		WHERE id = $1 AND status = $2
	`, id, from, to, at, markPaid, markCompleted)
	if err != nil {
		return fmt.Errorf("order repository: update status %w", err)
	}
	return common.ExpectAffected(result, ErrStatusConflict)
}

func (q *queries) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := sqlx.SelectContext(ctx, q.db, &orders, `
		SELECT * FROM orders WHERE buyer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, buyerID, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list by buyer %w", err)
	}
	return orders, nil
}

func (q *queries) ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := sqlx.SelectContext(ctx, q.db, &orders, `
		SELECT * FROM orders WHERE seller_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, sellerID, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list by seller %w", err)
	}
	return orders, nil
}

func (q *queries) ListSellerLedgerOrders(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := sqlx.SelectContext(ctx, q.db, &orders, `
		SELECT * FROM orders
		WHERE seller_id = $1 AND status IN ('paid', 'completed', 'resolved_release')
	`, sellerID); err != nil {
		return nil, fmt.Errorf("order repository: list ledger orders %w", err)
	}
	return orders, nil
}

func (q *queries) ListClearableOrders(ctx context.Context, paidBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := sqlx.SelectContext(ctx, q.db, &orders, `
		SELECT * FROM orders
		WHERE status = 'paid' AND paid_at IS NOT NULL AND paid_at <= $1
		ORDER BY paid_at ASC LIMIT $2
	`, paidBefore, limit); err != nil {
		return nil, fmt.Errorf("order repository: list clearable %w", err)
	}
	return orders, nil
}
