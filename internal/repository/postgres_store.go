package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

// PostgresStore реализует Store поверх sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	return common.WithTransaction(ctx, s.db, nil, func(tx *sqlx.Tx) error {
		return fn(&queries{db: tx})
	})
}

func (s *PostgresStore) ReadOnly(ctx context.Context, fn func(q Queries) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return common.WithTransaction(ctx, s.db, opts, func(tx *sqlx.Tx) error {
		return fn(&queries{db: tx})
	})
}

// queries - общая реализация для *sqlx.DB и *sqlx.Tx.
type queries struct {
	db sqlx.ExtContext
}

var _ Queries = (*queries)(nil)

// LockSeller берёт транзакционную advisory-блокировку по продавцу.
func (q *queries) LockSeller(ctx context.Context, sellerID uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sellerID.String()); err != nil {
		return fmt.Errorf("lock seller %s: %w", sellerID, err)
	}
	return nil
}
