package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/market-escrow/internal/dto"
	"github.com/ignatzorin/market-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/service"
)

type OrderHandler struct {
	orders   *service.OrderService
	disputes *service.DisputeService
}

func NewOrderHandler(orders *service.OrderService, disputes *service.DisputeService) *OrderHandler {
	return &OrderHandler{orders: orders, disputes: disputes}
}

// CreateOrder POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	buyerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	order, err := h.orders.CreateOrder(ctx, buyerID, req.ProductID, req.Quantity)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	// без ссылки заказ всё равно создан: её можно запросить повторно
	resp := dto.CreateOrderResponse{Order: order}
	ref, err := h.orders.CreatePaymentIntent(ctx, order.ID, buyerID)
	if err != nil {
		logger.Log.WithError(err).WithField("order_id", order.ID).Warn("не удалось создать платёж для нового заказа")
	} else {
		resp.PaymentReference = ref
		resp.Order.PaymentReference = &ref
	}
	c.JSON(http.StatusCreated, resp)
}

// GetOrder GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListMyOrders GET /orders/my?role=buyer|seller
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	role := c.DefaultQuery("role", service.OrderRoleBuyer)
	limit, offset := common.GetPagination(c)
	orders, err := h.orders.ListOrders(c.Request.Context(), userID, role, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(orders, limit, offset))
}

// GetOrderHistory GET /orders/:id/history
func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	history, err := h.orders.GetOrderHistory(c.Request.Context(), orderID, actor)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// CreatePaymentIntent POST /orders/:id/payment-intent
func (h *OrderHandler) CreatePaymentIntent(c *gin.Context) {
	buyerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	ref, err := h.orders.CreatePaymentIntent(c.Request.Context(), orderID, buyerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PaymentIntentResponse{OrderID: orderID, PaymentReference: ref})
}

// CompleteOrder POST /orders/:id/complete
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.CompleteOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// OpenDispute POST /orders/:id/dispute
func (h *OrderHandler) OpenDispute(c *gin.Context) {
	buyerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), orderID, buyerID, req.Reason, req.Description)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// GetOrderDispute GET /orders/:id/dispute
func (h *OrderHandler) GetOrderDispute(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetDisputeByOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}
