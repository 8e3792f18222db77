package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound                ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden               ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest              ErrorCode = "BAD_REQUEST"
	ErrCodeConflict                ErrorCode = "CONFLICT"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation              ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError           ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidTransition       ErrorCode = "INVALID_TRANSITION"
	ErrCodeNotEligible             ErrorCode = "NOT_ELIGIBLE"
	ErrCodeDuplicateDispute        ErrorCode = "DUPLICATE_DISPUTE"
	ErrCodeAlreadyResolved         ErrorCode = "ALREADY_RESOLVED"
	ErrCodeInsufficientBalance     ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeMissingFinancialDetails ErrorCode = "MISSING_FINANCIAL_DETAILS"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал с сентинелами
// после Wrap и fmt.Errorf("%w").
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// InvalidTransition описывает попытку перевести сущность в недопустимый статус.
func InvalidTransition(entity string, from, to string) *AppError {
	return New(ErrCodeInvalidTransition, fmt.Sprintf("%s: переход %s → %s недопустим", entity, from, to))
}

// NotEligible описывает отказ по правилам допуска.
func NotEligible(message string) *AppError {
	return New(ErrCodeNotEligible, message)
}

// Validation описывает некорректный ввод.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeNotEligible:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition, ErrCodeDuplicateDispute, ErrCodeAlreadyResolved:
		return http.StatusConflict
	case ErrCodeInsufficientBalance, ErrCodeMissingFinancialDetails:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatusOf возвращает HTTP-статус для произвольной ошибки.
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

var (
	ErrOrderNotFound           = New(ErrCodeNotFound, "заказ не найден")
	ErrProductNotFound         = New(ErrCodeNotFound, "товар не найден")
	ErrDisputeNotFound         = New(ErrCodeNotFound, "спор не найден")
	ErrWithdrawalNotFound      = New(ErrCodeNotFound, "заявка на вывод не найдена")
	ErrUnauthorized            = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden               = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidTransition       = New(ErrCodeInvalidTransition, "недопустимый переход статуса")
	ErrNotEligible             = New(ErrCodeNotEligible, "действие недоступно")
	ErrDuplicateDispute        = New(ErrCodeDuplicateDispute, "по заказу уже открыт спор")
	ErrAlreadyResolved         = New(ErrCodeAlreadyResolved, "спор уже закрыт")
	ErrInsufficientBalance     = New(ErrCodeInsufficientBalance, "недостаточно доступных средств")
	ErrMissingFinancialDetails = New(ErrCodeMissingFinancialDetails, "не заполнены платёжные реквизиты")
	ErrInvalidPaymentReference = New(ErrCodeNotEligible, "платёжная ссылка не соответствует заказу")
	ErrInvalidWebhookSignature = New(ErrCodeUnauthorized, "неверная подпись уведомления")
)
