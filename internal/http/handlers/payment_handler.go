package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/dto"
	"github.com/ignatzorin/market-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/payment"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/market-escrow/internal/service"
)

const maxWebhookBody = 64 * 1024

// PaymentHandler принимает уведомления платёжного шлюза.
type PaymentHandler struct {
	orders *service.OrderService
	guard  payment.DeliveryGuard
	secret []byte
}

func NewPaymentHandler(orders *service.OrderService, guard payment.DeliveryGuard, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{orders: orders, guard: guard, secret: []byte(webhookSecret)}
}

// Webhook POST /payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать тело запроса")
		return
	}
	if !payment.VerifySignature(h.secret, body, c.GetHeader(payment.SignatureHeader)) {
		common.RespondAppError(c, apperror.ErrInvalidWebhookSignature)
		return
	}

	event, err := payment.ParseWebhook(body)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	log := logger.Log.WithFields(logrus.Fields{
		"delivery_id": event.ID,
		"type":        event.Type,
		"reference":   event.Reference,
	})

	if event.Type != payment.EventPaymentSucceeded {
		log.Info("уведомление шлюза пропущено")
		c.JSON(http.StatusOK, dto.WebhookAck{Status: "ignored"})
		return
	}

	ctx := c.Request.Context()
	fresh, err := h.guard.Acquire(ctx, event.ID)
	if err != nil {
		// подтверждение оплаты идемпотентно, обработаем без отметки
		log.WithError(err).Warn("не удалось отметить доставку уведомления")
		fresh = true
	}
	if !fresh {
		c.JSON(http.StatusOK, dto.WebhookAck{Status: "duplicate"})
		return
	}

	order, applied, err := h.orders.ConfirmPaymentByReference(ctx, event.Reference)
	if err != nil {
		if relErr := h.guard.Release(ctx, event.ID); relErr != nil {
			log.WithError(relErr).Warn("не удалось снять отметку доставки")
		}
		common.RespondAppError(c, err)
		return
	}

	status := "already_confirmed"
	if applied {
		status = "confirmed"
	}
	c.JSON(http.StatusOK, dto.WebhookAck{Status: status, OrderID: &order.ID})
}
