// Package payment - интеграция с платёжным провайдером: создание платежа,
// проверка и разбор уведомлений о результате оплаты.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/logger"
)

const ProviderSandbox = "sandbox"

// Gateway создаёт платёж у провайдера и возвращает его ссылку. Подтверждение
// приходит позже отдельным уведомлением.
type Gateway interface {
	CreateIntent(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, payerID uuid.UUID) (string, error)
}

// NewGateway выбирает реализацию по имени провайдера.
func NewGateway(provider string) (Gateway, error) {
	switch strings.ToLower(provider) {
	case "", ProviderSandbox:
		return NewSandboxGateway(), nil
	default:
		return nil, fmt.Errorf("payment: неизвестный провайдер %q", provider)
	}
}

// SandboxGateway выдаёт ссылки без обращения к внешнему сервису. Оплату
// подтверждают подписанным запросом на webhook.
type SandboxGateway struct{}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{}
}

func (g *SandboxGateway) CreateIntent(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, payerID uuid.UUID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reference := "sbx_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	logger.Log.WithFields(logrus.Fields{
		"order_id":  orderID,
		"payer_id":  payerID,
		"amount":    amount.StringFixed(2),
		"reference": reference,
	}).Info("sandbox: создан платёж")
	return reference, nil
}
