package middleware

import (
	"fmt"
	"io"
	"runtime/debug"

	apperrors "z-novel-copilot/pkg/errors"
	"z-novel-copilot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery 把 panic 转成结构化日志与统一的 500 响应
//
// gin 自带的输出被丢弃，断开的连接由 gin 直接中止。
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "panic recovered", fmt.Errorf("%v", recovered),
			"stack", string(debug.Stack()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		// SSE 已经开始写出时无法再改状态码
		if c.Writer.Written() {
			c.Abort()
			return
		}
		abortWith(c, apperrors.New(apperrors.CodeInternalError, "internal server error"))
	})
}
