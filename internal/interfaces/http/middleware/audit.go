package middleware

import (
	"net/http"
	"time"

	"z-novel-copilot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Audit 记录会改变会话、文档或生成状态的请求，读请求不记录
//
// 4xx/5xx 以 warn 级别输出，便于在日志里找出被拒绝的状态迁移。
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"user_id", c.GetString("user_id"),
		}
		if ch := c.Param("channel"); ch != "" {
			args = append(args, "channel", ch)
		}
		if status >= http.StatusBadRequest {
			logger.Warn(c.Request.Context(), "api audit", args...)
			return
		}
		logger.Info(c.Request.Context(), "api audit", args...)
	}
}
