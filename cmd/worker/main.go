package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ignatzorin/market-escrow/internal/bootstrap"
	"github.com/ignatzorin/market-escrow/internal/config"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/payment"
	"github.com/ignatzorin/market-escrow/internal/service"
	"github.com/ignatzorin/market-escrow/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("worker: ошибка загрузки конфигурации: %v", err)
	}
	bootstrap.InitLogger(cfg)

	// хранилище в памяти не разделяется между процессами, клиринг тогда идёт внутри сервера
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Log.Fatal("worker: STORAGE_DRIVER=memory не поддерживается отдельным процессом")
	}

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("worker: ошибка подключения к хранилищу: %v", err)
	}
	defer storage.Close()

	redisClient, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("worker: %v", err)
	}

	// уведомления сохраняются в ленту, а через Redis доходят до WebSocket-клиентов API
	notifier := events.Fanout{service.NewNotificationService(storage.Notifications)}
	if redisClient != nil {
		defer redisClient.Close()
		notifier = append(notifier, events.NewRedisPublisher(redisClient, events.NotificationsChannel))
	}

	gateway, err := payment.NewGateway(cfg.GatewayProvider)
	if err != nil {
		logger.Log.Fatalf("worker: %v", err)
	}
	orders := service.NewOrderService(storage.Store, gateway, notifier)

	worker.NewClearingWorker(orders, cfg.ClearingWindow, cfg.ClearingInterval, cfg.ClearingBatchSize).Run(ctx)
}
