package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/models"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
)

// OrderCompleter описывает операции заказов, нужные клирингу.
type OrderCompleter interface {
	ListClearableOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID, actor models.Actor) (*models.Order, error)
}

// ClearingWorker завершает оплаченные заказы, у которых истекло окно
// подтверждения покупателем.
type ClearingWorker struct {
	orders    OrderCompleter
	window    time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
	log       *logrus.Entry
}

func NewClearingWorker(orders OrderCompleter, window, interval time.Duration, batchSize int) *ClearingWorker {
	return &ClearingWorker{
		orders:    orders,
		window:    window,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
		log:       logger.WithComponent("clearing"),
	}
}

// WithClock подменяет источник времени.
func (w *ClearingWorker) WithClock(now func() time.Time) *ClearingWorker {
	w.now = now
	return w
}

// Run выполняет проход сразу и затем по тикеру до отмены ctx.
func (w *ClearingWorker) Run(ctx context.Context) {
	w.log.WithFields(logrus.Fields{
		"window":   w.window.String(),
		"interval": w.interval.String(),
	}).Info("клиринг запущен")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.WithError(err).Error("ошибка прохода клиринга")
		}

		select {
		case <-ctx.Done():
			w.log.Info("клиринг остановлен")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce обрабатывает заказы пачками, пока они не закончатся, и
// возвращает число завершённых.
func (w *ClearingWorker) RunOnce(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.window)
	completed := 0
	// заказ, который не удалось завершить, снова попадёт в выборку
	skipped := make(map[uuid.UUID]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		limit := w.batchSize + len(skipped)
		orders, err := w.orders.ListClearableOrders(ctx, cutoff, limit)
		if err != nil {
			return completed, err
		}

		progressed := false
		for _, order := range orders {
			if _, ok := skipped[order.ID]; ok {
				continue
			}
			progressed = true

			_, err := w.orders.CompleteOrder(ctx, order.ID, models.SystemActor)
			switch {
			case err == nil:
				completed++
				w.log.WithField("order_id", order.ID).Info("заказ завершён по истечении окна")
			case apperror.CodeOf(err) == apperror.ErrCodeInvalidTransition:
				// покупатель успел подтвердить или открыть спор
				skipped[order.ID] = struct{}{}
			default:
				skipped[order.ID] = struct{}{}
				w.log.WithError(err).WithField("order_id", order.ID).Warn("не удалось завершить заказ")
			}
		}

		if !progressed || len(orders) < limit {
			return completed, nil
		}
	}
}
