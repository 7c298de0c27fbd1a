package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/port"
)

const stockKeyPrefix = "stock:"

// Movements for one key may reach the mirror out of order; the version
// check keeps the newest count.
var setStockIfNewerScript = redis.NewScript(`
local key = KEYS[1]
local stock = ARGV[1]
local version = tonumber(ARGV[2])

local current = tonumber(redis.call('HGET', key, 'version') or '0')
if version <= current then
	return 0
end

redis.call('HSET', key, 'stock', stock, 'version', version)
return 1
`)

var (
	_ port.CacheRepository = (*RedisAdapter)(nil)
	_ port.StockSink       = (*RedisAdapter)(nil)
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func stockKey(pharmacyID, medicineID string) string {
	return stockKeyPrefix + pharmacyID + ":" + medicineID
}

func (r *RedisAdapter) Name() string { return "redis" }

func (r *RedisAdapter) Consume(ctx context.Context, m domain.StockMovement) error {
	_, err := r.SetStockIfNewer(ctx, m.PharmacyID, m.MedicineID, m.Stock, m.Version)
	return err
}

func (r *RedisAdapter) SetStockIfNewer(ctx context.Context, pharmacyID, medicineID string, stock int, version int64) (bool, error) {
	result, err := setStockIfNewerScript.Run(ctx, r.client, []string{stockKey(pharmacyID, medicineID)}, stock, version).Int()
	if err != nil {
		return false, fmt.Errorf("set stock: %w", err)
	}

	return result == 1, nil
}

func (r *RedisAdapter) GetStock(ctx context.Context, pharmacyID, medicineID string) (int, error) {
	stock, err := r.client.HGet(ctx, stockKey(pharmacyID, medicineID), "stock").Int()
	if errors.Is(err, redis.Nil) {
		return 0, domain.NewNotFoundError("cached stock", pharmacyID+"/"+medicineID)
	}
	if err != nil {
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return stock, nil
}
