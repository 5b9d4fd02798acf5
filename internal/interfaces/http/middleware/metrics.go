// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strconv"
	"strings"
	"time"

	"z-novel-copilot/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics Prometheus 指标采集中间件
//
// streamPaths 下的长连接只计请求数，不进入耗时与响应大小分布。
func Metrics(streamPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		if size := float64(c.Request.ContentLength); size > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(size)
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		if isStream(c.Request.URL.Path, streamPaths) {
			return
		}

		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := float64(c.Writer.Size()); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(size)
		}
	}
}

func isStream(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
