// Package memory - хранилище в памяти процесса для локального запуска
// (STORAGE_DRIVER=memory) и тестов сервисов.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository"
	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

// Store сериализует транзакции одним мьютексом. Транзакция работает с
// копией состояния и подменяет его только при успешном завершении.
type Store struct {
	mu   sync.RWMutex
	data *state
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn func(q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(snapshot); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *Store) ReadOnly(ctx context.Context, fn func(q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// PutProduct добавляет или заменяет товар каталога.
func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.products[p.ID] = p
}

type state struct {
	products    map[uuid.UUID]models.Product
	orders      map[uuid.UUID]models.Order
	history     []models.OrderHistory
	disputes    map[uuid.UUID]models.Dispute
	withdrawals map[uuid.UUID]models.Withdrawal
	details     map[uuid.UUID]models.FinancialDetails
}

func newState() *state {
	return &state{
		products:    make(map[uuid.UUID]models.Product),
		orders:      make(map[uuid.UUID]models.Order),
		disputes:    make(map[uuid.UUID]models.Dispute),
		withdrawals: make(map[uuid.UUID]models.Withdrawal),
		details:     make(map[uuid.UUID]models.FinancialDetails),
	}
}

func (st *state) clone() *state {
	c := &state{
		products:    make(map[uuid.UUID]models.Product, len(st.products)),
		orders:      make(map[uuid.UUID]models.Order, len(st.orders)),
		history:     append([]models.OrderHistory(nil), st.history...),
		disputes:    make(map[uuid.UUID]models.Dispute, len(st.disputes)),
		withdrawals: make(map[uuid.UUID]models.Withdrawal, len(st.withdrawals)),
		details:     make(map[uuid.UUID]models.FinancialDetails, len(st.details)),
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.disputes {
		c.disputes[k] = v
	}
	for k, v := range st.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range st.details {
		c.details[k] = v
	}
	return c
}

func (st *state) LockSeller(context.Context, uuid.UUID) error {
	return nil
}

func (st *state) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (st *state) CreateProduct(_ context.Context, p *models.Product) error {
	if _, ok := st.products[p.ID]; ok {
		return fmt.Errorf("product %s: %w", p.ID, common.ErrAlreadyExists)
	}
	st.products[p.ID] = *p
	return nil
}

func (st *state) AdjustProductStock(_ context.Context, id uuid.UUID, delta int) (int, error) {
	p, ok := st.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	p.Stock += delta
	st.products[id] = p
	return p.Stock, nil
}

func (st *state) CreateOrder(_ context.Context, order *models.Order) error {
	st.orders[order.ID] = *order
	return nil
}

func (st *state) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := st.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (st *state) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return st.GetOrder(ctx, id)
}

func (st *state) GetOrderByPaymentReference(_ context.Context, reference string) (*models.Order, error) {
	for _, o := range st.orders {
		if o.PaymentReference != nil && *o.PaymentReference == reference {
			return &o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (st *state) SetPaymentReference(_ context.Context, id uuid.UUID, reference string) error {
	o, ok := st.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.PaymentReference = &reference
	st.orders[id] = o
	return nil
}

func (st *state) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to valueobject.OrderStatus, at time.Time) error {
	o, ok := st.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	if from == valueobject.OrderStatusPending && to == valueobject.OrderStatusPaid && o.PaidAt == nil {
		o.PaidAt = &at
	}
	if from == valueobject.OrderStatusPaid && to == valueobject.OrderStatusCompleted {
		o.CompletedAt = &at
	}
	o.Status = to
	o.UpdatedAt = at
	st.orders[id] = o
	return nil
}

func (st *state) ListOrdersByBuyer(_ context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return page(st.filterOrders(func(o models.Order) bool { return o.BuyerID == buyerID }), limit, offset), nil
}

func (st *state) ListOrdersBySeller(_ context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return page(st.filterOrders(func(o models.Order) bool { return o.SellerID == sellerID }), limit, offset), nil
}

func (st *state) ListSellerLedgerOrders(_ context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	return st.filterOrders(func(o models.Order) bool {
		return o.SellerID == sellerID && (o.Status == valueobject.OrderStatusPaid || o.Status.CountsTowardEarnings())
	}), nil
}

func (st *state) ListClearableOrders(_ context.Context, paidBefore time.Time, limit int) ([]models.Order, error) {
	orders := st.filterOrders(func(o models.Order) bool {
		return o.Status == valueobject.OrderStatusPaid && o.PaidAt != nil && !o.PaidAt.After(paidBefore)
	})
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].PaidAt.Before(*orders[j].PaidAt) })
	return page(orders, limit, 0), nil
}

func (st *state) filterOrders(match func(models.Order) bool) []models.Order {
	var out []models.Order
	for _, o := range st.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (st *state) AddOrderHistory(_ context.Context, entry *models.OrderHistory) error {
	st.history = append(st.history, *entry)
	return nil
}

func (st *state) ListOrderHistory(_ context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var out []models.OrderHistory
	for _, h := range st.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (st *state) CreateDispute(_ context.Context, d *models.Dispute) error {
	for _, existing := range st.disputes {
		if existing.OrderID == d.OrderID && existing.Status.IsActive() {
			return repository.ErrActiveDisputeExists
		}
	}
	st.disputes[d.ID] = *d
	return nil
}

func (st *state) GetDispute(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, ok := st.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	return &d, nil
}

func (st *state) GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return st.GetDispute(ctx, id)
}

func (st *state) GetActiveDisputeByOrder(_ context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	for _, d := range st.disputes {
		if d.OrderID == orderID && d.Status.IsActive() {
			return &d, nil
		}
	}
	return nil, repository.ErrDisputeNotFound
}

func (st *state) GetLatestDisputeByOrder(_ context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var latest *models.Dispute
	for _, d := range st.disputes {
		if d.OrderID != orderID {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			d := d
			latest = &d
		}
	}
	if latest == nil {
		return nil, repository.ErrDisputeNotFound
	}
	return latest, nil
}

func (st *state) UpdateDispute(_ context.Context, d *models.Dispute, from valueobject.DisputeStatus) error {
	current, ok := st.disputes[d.ID]
	if !ok {
		return repository.ErrDisputeNotFound
	}
	if current.Status != from {
		return repository.ErrStatusConflict
	}
	current.Status = d.Status
	current.ResolutionDetails = d.ResolutionDetails
	current.ResolvedBy = d.ResolvedBy
	current.ResolvedAt = d.ResolvedAt
	current.UpdatedAt = d.UpdatedAt
	st.disputes[d.ID] = current
	return nil
}

func (st *state) ListDisputesByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	out := st.filterDisputes(func(d models.Dispute) bool { return d.IsParticipant(userID) })
	return page(out, limit, offset), nil
}

func (st *state) ListActiveDisputes(_ context.Context, limit, offset int) ([]models.Dispute, error) {
	out := st.filterDisputes(func(d models.Dispute) bool { return d.Status.IsActive() })
	// Старые споры первыми, как в очереди администратора.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return page(out, limit, offset), nil
}

func (st *state) filterDisputes(match func(models.Dispute) bool) []models.Dispute {
	var out []models.Dispute
	for _, d := range st.disputes {
		if match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (st *state) CreateWithdrawal(_ context.Context, w *models.Withdrawal) error {
	st.withdrawals[w.ID] = *w
	return nil
}

func (st *state) GetWithdrawal(_ context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w, ok := st.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	return &w, nil
}

func (st *state) UpdateWithdrawal(_ context.Context, w *models.Withdrawal, from valueobject.WithdrawalStatus) error {
	current, ok := st.withdrawals[w.ID]
	if !ok {
		return repository.ErrWithdrawalNotFound
	}
	if current.Status != from {
		return repository.ErrStatusConflict
	}
	current.Status = w.Status
	current.AdminNote = w.AdminNote
	current.ProcessedBy = w.ProcessedBy
	current.PaidAt = w.PaidAt
	current.ProcessedAt = w.ProcessedAt
	st.withdrawals[w.ID] = current
	return nil
}

func (st *state) ListWithdrawalsByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	out := st.filterWithdrawals(func(w models.Withdrawal) bool { return w.UserID == userID })
	return page(out, limit, offset), nil
}

func (st *state) ListWithdrawalsByStatus(_ context.Context, status valueobject.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, error) {
	out := st.filterWithdrawals(func(w models.Withdrawal) bool { return w.Status == status })
	return page(out, limit, offset), nil
}

func (st *state) ListSellerLedgerWithdrawals(_ context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	return st.filterWithdrawals(func(w models.Withdrawal) bool {
		return w.UserID == userID && w.Status.Reserves()
	}), nil
}

func (st *state) filterWithdrawals(match func(models.Withdrawal) bool) []models.Withdrawal {
	var out []models.Withdrawal
	for _, w := range st.withdrawals {
		if match(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (st *state) GetFinancialDetails(_ context.Context, userID uuid.UUID) (*models.FinancialDetails, error) {
	fd, ok := st.details[userID]
	if !ok {
		return nil, repository.ErrFinancialDetailsNotFound
	}
	return &fd, nil
}

func (st *state) UpsertFinancialDetails(_ context.Context, fd *models.FinancialDetails) error {
	if existing, ok := st.details[fd.UserID]; ok {
		fd.CreatedAt = existing.CreatedAt
	} else {
		fd.CreatedAt = fd.UpdatedAt
	}
	st.details[fd.UserID] = *fd
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
