package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/market-escrow/internal/config"
	"github.com/ignatzorin/market-escrow/internal/db"
	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/repository"
	"github.com/ignatzorin/market-escrow/internal/repository/memory"
	"github.com/ignatzorin/market-escrow/internal/service"
	"github.com/ignatzorin/market-escrow/migrations"
)

// Storage объединяет хранилище книги заказов и уведомлений выбранного драйвера.
type Storage struct {
	Store         repository.Store
	Notifications service.NotificationRepository
	DB            *sqlx.DB
}

// OpenStorage подключает хранилище по STORAGE_DRIVER. Для postgres
// применяются миграции: из MIGRATIONS_PATH, если задан, иначе встроенные.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Log.Warn("bootstrap: используется хранилище в памяти, данные не сохраняются")
		return &Storage{
			Store:         memory.NewStore(),
			Notifications: memory.NewNotificationRepository(),
		}, nil
	}

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}

	var fsys fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		fsys = os.DirFS(cfg.MigrationsPath)
	}
	if err := db.RunMigrations(ctx, conn, fsys); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bootstrap: миграции: %w", err)
	}

	return &Storage{
		Store:         repository.NewPostgresStore(conn),
		Notifications: repository.NewNotificationRepository(conn),
		DB:            conn,
	}, nil
}

// Ping проверяет соединение с базой. Для хранилища в памяти всегда nil.
func (s *Storage) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.PingContext(ctx)
}

func (s *Storage) Close() {
	if s.DB == nil {
		return
	}
	if err := s.DB.Close(); err != nil {
		logger.Log.WithError(err).Error("bootstrap: ошибка закрытия базы")
	}
}

// OpenRedis подключает Redis, если задан REDIS_URL. Без него возвращает nil.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bootstrap: redis недоступен: %w", err)
	}
	return client, nil
}

// InitLogger настраивает logrus по окружению.
func InitLogger(cfg *config.Config) {
	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
}
