package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/http/middleware"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/repository/memory"
	"github.com/ignatzorin/market-escrow/internal/service"
)

type failingGateway struct{}

func (failingGateway) CreateIntent(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, payerID uuid.UUID) (string, error) {
	return "", errors.New("provider unavailable")
}

func TestOrderHandler_CreateOrderWithoutPaymentReference(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	product := models.Product{
		ID:               uuid.New(),
		SellerID:         uuid.New(),
		Title:            "Ключ активации",
		UnitPrice:        decimal.RequireFromString("10.00"),
		Stock:            3,
		MinOrderQuantity: 1,
		IsActive:         true,
	}
	store.PutProduct(product)

	orders := service.NewOrderService(store, failingGateway{}, events.Fanout{})
	h := NewOrderHandler(orders, service.NewDisputeService(store, events.Fanout{}))

	buyerID := uuid.New()
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.POST("/orders", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, buyerID)
		c.Set(middleware.ContextRoleKey, models.RoleUser)
		c.Next()
	}, h.CreateOrder)

	body, err := json.Marshal(map[string]any{"product_id": product.ID, "quantity": 1})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// сбой провайдера не отменяет созданный заказ
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "", resp["payment_reference"])
	assert.Equal(t, string(valueobject.OrderStatusPending), resp["status"])
}
