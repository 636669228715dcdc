package adapter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/order/domain/port"
)

const productKeyPrefix = "order:product:"

// CachedCatalog 是 port.ProductCatalog 的 Redis 缓存装饰器，只用于读取时解析商品名称。
// 下单定价始终直接访问商品目录。缓存不可用时退化为直接调用下游。
type CachedCatalog struct {
	next        port.ProductCatalog
	redisClient *redis.Client
	ttl         time.Duration
}

// NewCachedCatalog 创建一个新的缓存装饰器实例。
func NewCachedCatalog(next port.ProductCatalog, redisClient *redis.Client, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedCatalog{next: next, redisClient: redisClient, ttl: ttl}
}

func productKey(id int) string {
	return productKeyPrefix + strconv.Itoa(id)
}

// ValidateProducts 先查缓存，未命中的ID再交给下游，并回填缓存
func (c *CachedCatalog) ValidateProducts(ctx context.Context, ids []int) ([]port.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rdb := c.redisClient.GetClient()

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	vals, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("product cache unavailable, calling catalog directly")
		return c.next.ValidateProducts(ctx, ids)
	}

	products := make([]port.Product, 0, len(ids))
	var misses []int
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var p port.Product
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		products = append(products, p)
	}
	if len(misses) == 0 {
		return products, nil
	}

	fetched, err := c.next.ValidateProducts(ctx, misses)
	if err != nil {
		return nil, err
	}
	c.store(ctx, rdb, fetched)
	return append(products, fetched...), nil
}

func (c *CachedCatalog) store(ctx context.Context, rdb goredis.UniversalClient, products []port.Product) {
	if len(products) == 0 {
		return
	}
	pipe := rdb.Pipeline()
	for _, p := range products {
		b, err := json.Marshal(p)
		if err != nil {
			continue
		}
		pipe.Set(ctx, productKey(p.ID), b, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("failed to populate product cache")
	}
}
