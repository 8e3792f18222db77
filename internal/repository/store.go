package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

var (
	ErrOrderNotFound            = fmt.Errorf("order: %w", common.ErrNotFound)
	ErrProductNotFound          = fmt.Errorf("product: %w", common.ErrNotFound)
	ErrDisputeNotFound          = fmt.Errorf("dispute: %w", common.ErrNotFound)
	ErrWithdrawalNotFound       = fmt.Errorf("withdrawal: %w", common.ErrNotFound)
	ErrFinancialDetailsNotFound = fmt.Errorf("financial details: %w", common.ErrNotFound)

	// ErrStatusConflict - статус сущности изменился между чтением и записью.
	ErrStatusConflict = fmt.Errorf("status: %w", common.ErrConflict)
	// ErrActiveDisputeExists - у заказа уже есть открытый спор.
	ErrActiveDisputeExists = fmt.Errorf("active dispute: %w", common.ErrAlreadyExists)
)

// Queries - операции хранилища, доступные внутри транзакции.
type Queries interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	// AdjustProductStock меняет остаток на delta и возвращает новое значение.
	AdjustProductStock(ctx context.Context, id uuid.UUID, delta int) (int, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) error
	// UpdateOrderStatus меняет статус только если текущий равен from,
	// иначе возвращает ErrStatusConflict.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to valueobject.OrderStatus, at time.Time) error
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error)
	ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Order, error)
	// ListSellerLedgerOrders возвращает заказы продавца, влияющие на баланс.
	ListSellerLedgerOrders(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error)
	ListClearableOrders(ctx context.Context, paidBefore time.Time, limit int) ([]models.Order, error)

	AddOrderHistory(ctx context.Context, entry *models.OrderHistory) error
	ListOrderHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)

	// CreateDispute возвращает ErrActiveDisputeExists при втором активном споре.
	CreateDispute(ctx context.Context, dispute *models.Dispute) error
	GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetActiveDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	GetLatestDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	// UpdateDispute сохраняет статус и поля решения, если текущий статус равен from.
	UpdateDispute(ctx context.Context, dispute *models.Dispute, from valueobject.DisputeStatus) error
	ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	ListActiveDisputes(ctx context.Context, limit, offset int) ([]models.Dispute, error)

	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	// UpdateWithdrawal сохраняет статус и поля обработки, если текущий статус равен from.
	UpdateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal, from valueobject.WithdrawalStatus) error
	ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status valueobject.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, error)
	// ListSellerLedgerWithdrawals возвращает заявки, резервирующие средства.
	ListSellerLedgerWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error)

	GetFinancialDetails(ctx context.Context, userID uuid.UUID) (*models.FinancialDetails, error)
	UpsertFinancialDetails(ctx context.Context, details *models.FinancialDetails) error

	// LockSeller сериализует операции над балансом одного продавца
	// до конца транзакции.
	LockSeller(ctx context.Context, sellerID uuid.UUID) error
}

// Store выдаёт Queries в рамках транзакции. Все изменения внутри fn
// фиксируются атомарно; ошибка из fn откатывает их.
type Store interface {
	WithTx(ctx context.Context, fn func(q Queries) error) error
	// ReadOnly даёт согласованный снимок для чтения нескольких таблиц.
	ReadOnly(ctx context.Context, fn func(q Queries) error) error
}
