package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/goroutine"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/market-escrow/internal/repository"
	"github.com/ignatzorin/market-escrow/internal/repository/common"
)

const (
	notifyTimeout = 5 * time.Second

	defaultPageSize = 20
	maxPageSize     = 100
)

// Clock позволяет тестам фиксировать время.
type Clock func() time.Time

// notifyAfterCommit рассылает событие в фоне. Вызывается только после
// успешной фиксации транзакции.
func notifyAfterCommit(n events.Notifier, event events.Event, userIDs ...uuid.UUID) {
	if n == nil {
		return
	}
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		for _, id := range userIDs {
			if err := n.Publish(ctx, id, event); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"event":   event.Type,
					"user_id": id,
					"error":   err,
				}).Warn("не удалось доставить уведомление")
			}
		}
	})
}

// storeError переводит ошибки хранилища в ошибки приложения.
func storeError(err error, notFound *apperror.AppError) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, common.ErrNotFound):
		return apperror.Wrap(err, notFound.Code, notFound.Message)
	case errors.Is(err, repository.ErrActiveDisputeExists):
		return apperror.Wrap(err, apperror.ErrCodeDuplicateDispute, apperror.ErrDuplicateDispute.Message)
	case errors.Is(err, repository.ErrStatusConflict):
		return apperror.Wrap(err, apperror.ErrCodeInvalidTransition, "статус изменился параллельно, повторите запрос")
	default:
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка хранилища")
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
