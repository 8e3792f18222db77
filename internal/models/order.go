package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
)

// Order описывает покупку цифрового товара. Деньги покупателя удерживаются
// платформой, пока заказ не будет завершён или спор не будет решён.
type Order struct {
	ID               uuid.UUID               `db:"id" json:"id"`
	BuyerID          uuid.UUID               `db:"buyer_id" json:"buyer_id"`
	SellerID         uuid.UUID               `db:"seller_id" json:"seller_id"`
	ProductID        uuid.UUID               `db:"product_id" json:"product_id"`
	Quantity         int                     `db:"quantity" json:"quantity"`
	UnitPrice        decimal.Decimal         `db:"unit_price" json:"unit_price"`
	TotalAmount      decimal.Decimal         `db:"total_amount" json:"total_amount"`
	Status           valueobject.OrderStatus `db:"status" json:"status"`
	PaymentReference *string                 `db:"payment_reference" json:"payment_reference,omitempty"`
	PaidAt           *time.Time              `db:"paid_at" json:"paid_at,omitempty"`
	CompletedAt      *time.Time              `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time               `db:"updated_at" json:"updated_at"`

	Warnings []string `db:"-" json:"warnings,omitempty"`
}

// NewOrder фиксирует цену товара на момент покупки.
func NewOrder(buyerID uuid.UUID, product *Product, quantity int, now time.Time) *Order {
	return &Order{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		SellerID:    product.SellerID,
		ProductID:   product.ID,
		Quantity:    quantity,
		UnitPrice:   product.UnitPrice,
		TotalAmount: product.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		Status:      valueobject.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// Product - позиция каталога продавца.
type Product struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	SellerID         uuid.UUID       `db:"seller_id" json:"seller_id"`
	Title            string          `db:"title" json:"title"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	Stock            int             `db:"stock" json:"stock"`
	MinOrderQuantity int             `db:"min_order_quantity" json:"min_order_quantity"`
	IsWholesale      bool            `db:"is_wholesale" json:"is_wholesale"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
