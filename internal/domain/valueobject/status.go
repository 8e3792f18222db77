package valueobject

import (
	"strings"

	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusDisputed        OrderStatus = "disputed"
	OrderStatusResolvedRefund  OrderStatus = "resolved_refund"
	OrderStatusResolvedRelease OrderStatus = "resolved_release"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusCompleted, OrderStatusDisputed},
	OrderStatusCompleted: {OrderStatusDisputed},
	// paid и completed - возврат после отзыва спора покупателем.
	OrderStatusDisputed:        {OrderStatusResolvedRefund, OrderStatusResolvedRelease, OrderStatusPaid, OrderStatusCompleted},
	OrderStatusCancelled:       {},
	OrderStatusResolvedRefund:  {},
	OrderStatusResolvedRelease: {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	for _, status := range orderTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(orderTransitions[s]) == 0
}

// CountsTowardEarnings - заказ входит в total продавца.
func (s OrderStatus) CountsTowardEarnings() bool {
	return s == OrderStatusCompleted || s == OrderStatusResolvedRelease
}

// IsPaymentConfirmed - оплата по заказу уже была подтверждена.
func (s OrderStatus) IsPaymentConfirmed() bool {
	switch s {
	case OrderStatusPaid, OrderStatusCompleted, OrderStatusDisputed,
		OrderStatusResolvedRefund, OrderStatusResolvedRelease:
		return true
	}
	return false
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("некорректный статус заказа")
	}
	return s, nil
}

type DisputeStatus string

const (
	DisputeStatusOpen            DisputeStatus = "open"
	DisputeStatusInReview        DisputeStatus = "in_review"
	DisputeStatusResolvedRefund  DisputeStatus = "resolved_refund"
	DisputeStatusResolvedRelease DisputeStatus = "resolved_release"
	DisputeStatusCancelled       DisputeStatus = "cancelled"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen:            {DisputeStatusInReview, DisputeStatusResolvedRefund, DisputeStatusResolvedRelease, DisputeStatusCancelled},
	DisputeStatusInReview:        {DisputeStatusResolvedRefund, DisputeStatusResolvedRelease},
	DisputeStatusResolvedRefund:  {},
	DisputeStatusResolvedRelease: {},
	DisputeStatusCancelled:       {},
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

func (s DisputeStatus) CanTransitionTo(newStatus DisputeStatus) bool {
	for _, status := range disputeTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusInReview
}

func (s DisputeStatus) IsTerminal() bool {
	return s.IsValid() && !s.IsActive()
}

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusPaid, WithdrawalStatusRejected:
		return true
	}
	return false
}

func (s WithdrawalStatus) CanTransitionTo(newStatus WithdrawalStatus) bool {
	return s == WithdrawalStatusPending &&
		(newStatus == WithdrawalStatusPaid || newStatus == WithdrawalStatusRejected)
}

// Reserves - сумма заявки вычитается из доступного баланса.
func (s WithdrawalStatus) Reserves() bool {
	return s == WithdrawalStatusPending || s == WithdrawalStatusPaid
}

func NewWithdrawalStatus(status string) (WithdrawalStatus, error) {
	s := WithdrawalStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("некорректный статус заявки")
	}
	return s, nil
}

type Resolution string

const (
	ResolutionRefund  Resolution = "refund"
	ResolutionRelease Resolution = "release"
)

func NewResolution(value string) (Resolution, error) {
	r := Resolution(value)
	if r != ResolutionRefund && r != ResolutionRelease {
		return "", apperror.Validation("решение должно быть refund или release")
	}
	return r, nil
}

// Statuses возвращает итоговые статусы спора и заказа для решения.
func (r Resolution) Statuses() (DisputeStatus, OrderStatus) {
	if r == ResolutionRefund {
		return DisputeStatusResolvedRefund, OrderStatusResolvedRefund
	}
	return DisputeStatusResolvedRelease, OrderStatusResolvedRelease
}

type DisputeReason string

const (
	DisputeReasonNotDelivered   DisputeReason = "not_delivered"
	DisputeReasonNotAsDescribed DisputeReason = "not_as_described"
	DisputeReasonInvalidKey     DisputeReason = "invalid_key"
	DisputeReasonOther          DisputeReason = "other"
)

// NewDisputeReason принимает категорию в любом регистре, с пробелами или
// дефисами вместо подчёркиваний ("Not delivered" → not_delivered).
func NewDisputeReason(value string) (DisputeReason, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	r := DisputeReason(normalized)
	switch r {
	case DisputeReasonNotDelivered, DisputeReasonNotAsDescribed, DisputeReasonInvalidKey, DisputeReasonOther:
		return r, nil
	}
	return "", apperror.Validation("некорректная причина спора")
}
