package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-escrow/internal/dto"
	"github.com/ignatzorin/market-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/market-escrow/internal/service"
)

type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
	balances    *service.BalanceService
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService, balances *service.BalanceService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals, balances: balances}
}

// GetBalance GET /balance
func (h *WithdrawalHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.balances.GetBalance(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBalanceResponse(balance))
}

// GetSellerBalance GET /admin/sellers/:id/balance
func (h *WithdrawalHandler) GetSellerBalance(c *gin.Context) {
	sellerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	balance, err := h.balances.GetBalance(c.Request.Context(), sellerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBalanceResponse(balance))
}

// GetFinancialDetails GET /financial-details
func (h *WithdrawalHandler) GetFinancialDetails(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	details, err := h.withdrawals.GetFinancialDetails(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// SaveFinancialDetails PUT /financial-details
func (h *WithdrawalHandler) SaveFinancialDetails(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.FinancialDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	details, err := h.withdrawals.SaveFinancialDetails(c.Request.Context(), userID, service.FinancialDetailsInput{
		PixKey:    req.PixKey,
		LegalName: req.LegalName,
		TaxID:     req.TaxID,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// CreateWithdrawal POST /withdrawals
func (h *WithdrawalHandler) CreateWithdrawal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма указана неверно")
		return
	}

	w, err := h.withdrawals.RequestWithdrawal(c.Request.Context(), userID, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// ListWithdrawals GET /withdrawals
func (h *WithdrawalHandler) ListWithdrawals(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	withdrawals, err := h.withdrawals.ListUserWithdrawals(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(withdrawals, limit, offset))
}

// ListQueue GET /admin/withdrawals?status=pending
func (h *WithdrawalHandler) ListQueue(c *gin.Context) {
	admin, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	withdrawals, err := h.withdrawals.ListWithdrawals(c.Request.Context(), admin, c.Query("status"), limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(withdrawals, limit, offset))
}

// ApproveWithdrawal POST /admin/withdrawals/:id/approve
func (h *WithdrawalHandler) ApproveWithdrawal(c *gin.Context) {
	admin, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	withdrawalID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	w, err := h.withdrawals.ApproveWithdrawal(c.Request.Context(), withdrawalID, admin)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// RejectWithdrawal POST /admin/withdrawals/:id/reject
func (h *WithdrawalHandler) RejectWithdrawal(c *gin.Context) {
	admin, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	withdrawalID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	w, err := h.withdrawals.RejectWithdrawal(c.Request.Context(), withdrawalID, admin, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
