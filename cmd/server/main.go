package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/market-escrow/internal/bootstrap"
	"github.com/ignatzorin/market-escrow/internal/config"
	"github.com/ignatzorin/market-escrow/internal/events"
	"github.com/ignatzorin/market-escrow/internal/goroutine"
	httpHandlers "github.com/ignatzorin/market-escrow/internal/http/handlers"
	"github.com/ignatzorin/market-escrow/internal/http/middleware"
	httpRouter "github.com/ignatzorin/market-escrow/internal/http/router"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/payment"
	"github.com/ignatzorin/market-escrow/internal/service"
	"github.com/ignatzorin/market-escrow/internal/worker"
	"github.com/ignatzorin/market-escrow/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}
	bootstrap.InitLogger(cfg)

	// Хранилище и миграции.
	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к хранилищу: %v", err)
	}
	defer storage.Close()

	redisClient, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	gateway, err := payment.NewGateway(cfg.GatewayProvider)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	notificationService := service.NewNotificationService(storage.Notifications)

	// Вебсокеты. С Redis события расходятся по всем экземплярам через pub/sub.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	var realtime events.Notifier = hub
	var deliveryGuard payment.DeliveryGuard = payment.NewMemoryDeliveryGuard()
	if redisClient != nil {
		realtime = events.NewRedisPublisher(redisClient, events.NotificationsChannel)
		deliveryGuard = payment.NewRedisDeliveryGuard(redisClient)
		if err := events.NewRedisSubscriber(redisClient).Subscribe(ctx, events.NotificationsChannel, hub.Deliver); err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
	}
	notifier := events.Fanout{notificationService, realtime}

	// Сервисы.
	orderService := service.NewOrderService(storage.Store, gateway, notifier)
	disputeService := service.NewDisputeService(storage.Store, notifier)
	withdrawalService := service.NewWithdrawalService(storage.Store, notifier, cfg.MinWithdrawalAmount)
	balanceService := service.NewBalanceService(storage.Store)
	seedService := service.NewSeedService(storage.Store, tokenManager)

	// Отдельного процесса клиринга у хранилища в памяти нет.
	if cfg.StorageDriver == config.StorageDriverMemory {
		clearing := worker.NewClearingWorker(orderService, cfg.ClearingWindow, cfg.ClearingInterval, cfg.ClearingBatchSize)
		goroutine.SafeGoWithContext(ctx, clearing.Run)
	}

	healthChecks := map[string]httpHandlers.HealthCheck{"database": storage.Ping}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Order:        httpHandlers.NewOrderHandler(orderService, disputeService),
		Dispute:      httpHandlers.NewDisputeHandler(disputeService),
		Withdrawal:   httpHandlers.NewWithdrawalHandler(withdrawalService, balanceService),
		Payment:      httpHandlers.NewPaymentHandler(orderService, deliveryGuard, cfg.GatewayWebhookSecret),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:       httpHandlers.NewHealthHandler(healthChecks),
		Seed:         httpHandlers.NewSeedHandler(seedService),
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, middleware.NewRateLimitStore(redisClient))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.Log.Infof("main: HTTP сервер запущен на порту %s (хранилище: %s)", cfg.HTTPPort, cfg.StorageDriver)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}
