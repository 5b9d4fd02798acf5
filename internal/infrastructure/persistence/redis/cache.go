package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"z-novel-copilot/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 文本 read-through 缓存
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存服务
func NewCache(client *Client) *Cache {
	return &Cache{
		client: client,
	}
}

// GetOrLoad 未命中时调用 loader 并回填，同一 key 的并发未命中只加载一次
//
// Redis 不可用时退化为直接加载，读写缓存的错误都不会返回给调用方。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (string, error)) (string, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Result()
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))
	if !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		logger.Warn(ctx, "cache read failed, loading directly", "key", key, "error", err.Error())
		return loader(ctx)
	}

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		text, err := loader(ctx)
		if err != nil {
			return "", err
		}
		if err := c.client.rdb.Set(ctx, key, text, ttl).Err(); err != nil {
			logger.Warn(ctx, "cache write failed", "key", key, "error", err.Error())
		}
		return text, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return result.(string), nil
}
