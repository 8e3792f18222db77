package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository/memory"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, payerID uuid.UUID) (string, error) {
	args := m.Called(ctx, orderID, amount, payerID)
	return args.String(0), args.Error(1)
}

type recordedEvent struct {
	UserID uuid.UUID
	Type   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Publish(_ context.Context, userID uuid.UUID, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{UserID: userID, Type: event.Type})
	return nil
}

func (r *recordingNotifier) has(userID uuid.UUID, eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.UserID == userID && e.Type == eventType {
			return true
		}
	}
	return false
}

func (r *recordingNotifier) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	t           *testing.T
	ctx         context.Context
	store       *memory.Store
	notifier    *recordingNotifier
	gateway     *mockGateway
	orders      *OrderService
	disputes    *DisputeService
	withdrawals *WithdrawalService
	balances    *BalanceService

	mu  sync.Mutex
	now time.Time

	seller models.Actor
	buyer  models.Actor
	admin  models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.NewStore(),
		notifier: &recordingNotifier{},
		gateway:  &mockGateway{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		seller:   models.Actor{UserID: uuid.New(), Role: models.RoleUser},
		buyer:    models.Actor{UserID: uuid.New(), Role: models.RoleUser},
		admin:    models.Actor{UserID: uuid.New(), Role: models.RoleAdmin},
	}
	f.orders = NewOrderService(f.store, f.gateway, f.notifier).WithClock(f.clock)
	f.disputes = NewDisputeService(f.store, f.notifier).WithClock(f.clock)
	f.withdrawals = NewWithdrawalService(f.store, f.notifier, decimal.Zero).WithClock(f.clock)
	f.balances = NewBalanceService(f.store)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) addProduct(price string, stock int) models.Product {
	p := models.Product{
		ID:               uuid.New(),
		SellerID:         f.seller.UserID,
		Title:            "Steam key",
		UnitPrice:        decimal.RequireFromString(price),
		Stock:            stock,
		MinOrderQuantity: 1,
		IsActive:         true,
		CreatedAt:        f.clock(),
		UpdatedAt:        f.clock(),
	}
	f.store.PutProduct(p)
	return p
}

func (f *fixture) pendingOrder(price string) *models.Order {
	f.t.Helper()
	p := f.addProduct(price, 10)
	order, err := f.orders.CreateOrder(f.ctx, f.buyer.UserID, p.ID, 1)
	require.NoError(f.t, err)
	return order
}

func (f *fixture) paidOrder(price string) *models.Order {
	f.t.Helper()
	order := f.pendingOrder(price)
	paid, applied, err := f.orders.ConfirmPayment(f.ctx, order.ID, "")
	require.NoError(f.t, err)
	require.True(f.t, applied)
	return paid
}

func (f *fixture) completedOrder(price string) *models.Order {
	f.t.Helper()
	order := f.paidOrder(price)
	completed, err := f.orders.CompleteOrder(f.ctx, order.ID, f.buyer)
	require.NoError(f.t, err)
	return completed
}

func (f *fixture) saveDetails(userID uuid.UUID) {
	f.t.Helper()
	_, err := f.withdrawals.SaveFinancialDetails(f.ctx, userID, FinancialDetailsInput{
		PixKey:    "seller@example.com",
		LegalName: "Loja Digital LTDA",
		TaxID:     "12.345.678/0001-90",
	})
	require.NoError(f.t, err)
}

func (f *fixture) balance() *models.Balance {
	f.t.Helper()
	b, err := f.balances.GetBalance(f.ctx, f.seller.UserID)
	require.NoError(f.t, err)
	return b
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
