package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/market-escrow/internal/repository"
	"github.com/ignatzorin/market-escrow/internal/validation"
)

// SeedService наполняет каталог и выпускает токены в development.
// Каталог и учётные записи живут в других сервисах, здесь только
// минимум для локальной проверки сценариев эскроу.
type SeedService struct {
	store  repository.Store
	tokens *TokenManager
	now    Clock
}

func NewSeedService(store repository.Store, tokens *TokenManager) *SeedService {
	return &SeedService{store: store, tokens: tokens, now: time.Now}
}

// ProductInput описывает товар, выставляемый продавцом.
type ProductInput struct {
	Title            string
	UnitPrice        decimal.Decimal
	Stock            int
	MinOrderQuantity int
	IsWholesale      bool
}

func (s *SeedService) CreateProduct(ctx context.Context, sellerID uuid.UUID, in ProductInput) (*models.Product, error) {
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateLength("название", title, 2, 200); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	price, err := valueobject.NewAmount(in.UnitPrice)
	if err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, apperror.Validation("остаток не может быть отрицательным")
	}
	if in.MinOrderQuantity < 1 {
		in.MinOrderQuantity = 1
	}

	now := s.now()
	product := &models.Product{
		ID:               uuid.New(),
		SellerID:         sellerID,
		Title:            title,
		UnitPrice:        price,
		Stock:            in.Stock,
		MinOrderQuantity: in.MinOrderQuantity,
		IsWholesale:      in.IsWholesale,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.WithTx(ctx, func(q repository.Queries) error {
		return q.CreateProduct(ctx, product)
	}); err != nil {
		return nil, storeError(err, apperror.ErrProductNotFound)
	}

	logger.Log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"seller_id":  sellerID,
	}).Info("seed: товар создан")
	return product, nil
}

// IssueToken выпускает access токен для нового или заданного пользователя.
func (s *SeedService) IssueToken(userID uuid.UUID, role string) (uuid.UUID, string, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return uuid.Nil, "", apperror.Validation("роль должна быть user или admin")
	}
	if userID == uuid.Nil {
		userID = uuid.New()
	}
	token, err := s.tokens.IssueAccess(userID, role)
	if err != nil {
		return uuid.Nil, "", apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токен")
	}
	return userID, token, nil
}
