package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/market-escrow/internal/service"
)

// SeedHandler доступен только при APP_ENV=development.
type SeedHandler struct {
	seed *service.SeedService
}

// NewSeedHandler создаёт новый seed handler.
func NewSeedHandler(seed *service.SeedService) *SeedHandler {
	return &SeedHandler{seed: seed}
}

// SeedTokenRequest представляет запрос на выпуск dev токена.
type SeedTokenRequest struct {
	UserID *uuid.UUID `json:"user_id"`
	Role   string     `json:"role"`
}

// SeedProductRequest представляет товар для каталога.
type SeedProductRequest struct {
	Title            string          `json:"title" binding:"required"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Stock            int             `json:"stock"`
	MinOrderQuantity int             `json:"min_order_quantity"`
	IsWholesale      bool            `json:"is_wholesale"`
}

// IssueToken обрабатывает POST /seed/token.
func (h *SeedHandler) IssueToken(c *gin.Context) {
	var req SeedTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	var userID uuid.UUID
	if req.UserID != nil {
		userID = *req.UserID
	}

	userID, token, err := h.seed.IssueToken(userID, req.Role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": userID, "role": req.Role, "access_token": token})
}

// CreateProduct обрабатывает POST /seed/products. Продавец - текущий пользователь.
func (h *SeedHandler) CreateProduct(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req SeedProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	product, err := h.seed.CreateProduct(c.Request.Context(), sellerID, service.ProductInput{
		Title:            req.Title,
		UnitPrice:        req.UnitPrice,
		Stock:            req.Stock,
		MinOrderQuantity: req.MinOrderQuantity,
		IsWholesale:      req.IsWholesale,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}
