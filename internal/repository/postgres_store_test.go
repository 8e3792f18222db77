package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-escrow/internal/db"
	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository"
	"github.com/ignatzorin/market-escrow/migrations"
)

// Тесты работают с настоящим Postgres и пропускаются без TEST_DATABASE_URL.
func newPostgresStore(t *testing.T) *repository.PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}

	ctx := context.Background()
	conn, err := db.NewPostgres(ctx, dsn, 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.RunMigrations(ctx, conn, migrations.FS))

	return repository.NewPostgresStore(conn)
}

func createOrder(t *testing.T, store *repository.PostgresStore) *models.Order {
	t.Helper()
	now := time.Now().UTC()
	product := &models.Product{
		ID:               uuid.New(),
		SellerID:         uuid.New(),
		Title:            "Ключ",
		UnitPrice:        decimal.RequireFromString("15.50"),
		Stock:            10,
		MinOrderQuantity: 1,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	order := models.NewOrder(uuid.New(), product, 2, now)

	err := store.WithTx(context.Background(), func(q repository.Queries) error {
		if err := q.CreateProduct(context.Background(), product); err != nil {
			return err
		}
		return q.CreateOrder(context.Background(), order)
	})
	require.NoError(t, err)
	return order
}

func TestPostgresStore_UpdateOrderStatusIsConditional(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	order := createOrder(t, store)
	now := time.Now().UTC()

	err := store.WithTx(ctx, func(q repository.Queries) error {
		return q.UpdateOrderStatus(ctx, order.ID, valueobject.OrderStatusPending, valueobject.OrderStatusPaid, now)
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(q repository.Queries) error {
		return q.UpdateOrderStatus(ctx, order.ID, valueobject.OrderStatusPending, valueobject.OrderStatusCancelled, now)
	})
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	var got *models.Order
	require.NoError(t, store.ReadOnly(ctx, func(q repository.Queries) error {
		var err error
		got, err = q.GetOrder(ctx, order.ID)
		return err
	}))
	assert.Equal(t, valueobject.OrderStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)
}

func TestPostgresStore_SecondActiveDisputeRejected(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	order := createOrder(t, store)
	order.Status = valueobject.OrderStatusPaid

	first := models.NewDispute(order, valueobject.DisputeReasonNotDelivered, "", time.Now().UTC())
	require.NoError(t, store.WithTx(ctx, func(q repository.Queries) error {
		return q.CreateDispute(ctx, first)
	}))

	second := models.NewDispute(order, valueobject.DisputeReasonOther, "", time.Now().UTC())
	err := store.WithTx(ctx, func(q repository.Queries) error {
		return q.CreateDispute(ctx, second)
	})
	assert.ErrorIs(t, err, repository.ErrActiveDisputeExists)
}

func TestPostgresStore_LockSellerSerializesTransactions(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	sellerID := uuid.New()

	locked := make(chan struct{})
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, store.WithTx(ctx, func(q repository.Queries) error {
			if err := q.LockSeller(ctx, sellerID); err != nil {
				return err
			}
			close(locked)
			<-release
			record("first")
			return nil
		}))
	}()

	<-locked
	go func() {
		defer wg.Done()
		assert.NoError(t, store.WithTx(ctx, func(q repository.Queries) error {
			if err := q.LockSeller(ctx, sellerID); err != nil {
				return err
			}
			record("second")
			return nil
		}))
	}()

	// второй ждёт блокировку, пока первый не завершит транзакцию
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, order)
	mu.Unlock()
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"first", "second"}, order)
}
