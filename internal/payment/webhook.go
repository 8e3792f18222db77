package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// SignatureHeader содержит hex(HMAC-SHA256(secret, body)).
const SignatureHeader = "X-Payment-Signature"

const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

var ErrMalformedWebhook = errors.New("payment: некорректное уведомление")

// WebhookEvent - уведомление провайдера о результате оплаты.
type WebhookEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Reference string `json:"reference"`
}

func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature сравнивает подпись за постоянное время.
func VerifySignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, ErrMalformedWebhook
	}
	if event.ID == "" || event.Type == "" || event.Reference == "" {
		return nil, ErrMalformedWebhook
	}
	return &event, nil
}
