package payment

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	deliveryKeyPrefix = "payment:webhook:"
	deliveryKeyTTL    = 24 * time.Hour
)

// DeliveryGuard отбрасывает повторные доставки одного уведомления.
type DeliveryGuard interface {
	// Acquire возвращает false, если уведомление уже обрабатывалось.
	Acquire(ctx context.Context, deliveryID string) (bool, error)
	// Release снимает отметку, чтобы провайдер мог повторить доставку.
	Release(ctx context.Context, deliveryID string) error
}

type RedisDeliveryGuard struct {
	client *redis.Client
}

func NewRedisDeliveryGuard(client *redis.Client) *RedisDeliveryGuard {
	return &RedisDeliveryGuard{client: client}
}

func (g *RedisDeliveryGuard) Acquire(ctx context.Context, deliveryID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, deliveryKeyPrefix+deliveryID, 1, deliveryKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (g *RedisDeliveryGuard) Release(ctx context.Context, deliveryID string) error {
	return g.client.Del(ctx, deliveryKeyPrefix+deliveryID).Err()
}

// MemoryDeliveryGuard - вариант для одного процесса без Redis.
type MemoryDeliveryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeliveryGuard() *MemoryDeliveryGuard {
	return &MemoryDeliveryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryDeliveryGuard) Acquire(_ context.Context, deliveryID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[deliveryID]; ok {
		return false, nil
	}
	g.seen[deliveryID] = struct{}{}
	return true, nil
}

func (g *MemoryDeliveryGuard) Release(_ context.Context, deliveryID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, deliveryID)
	return nil
}
