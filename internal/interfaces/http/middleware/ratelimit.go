// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"z-novel-copilot/internal/infrastructure/persistence/redis"
	apperrors "z-novel-copilot/pkg/errors"
	"z-novel-copilot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
	// SkipPaths 不限流的路径前缀（长连接等）
	SkipPaths []string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

// RateLimit 限流中间件，按用户（未认证时按 IP）+ 路由计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	limit := cfg.RequestsPerSecond

	return func(c *gin.Context) {
		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		subject := c.GetString("user_id")
		if subject == "" {
			subject = c.ClientIP()
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		key := redis.BuildRateLimitKey(subject, c.Request.Method+" "+endpoint)

		ctx := c.Request.Context()
		allowed, remaining, err := limiter.Take(ctx, key, limit, time.Second)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			logger.Warn(ctx, "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			abortWith(c, apperrors.New(apperrors.CodeTooManyRequests, "rate limit exceeded"))
			return
		}

		c.Next()
	}
}
