// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	apperrors "z-novel-copilot/pkg/errors"
	"z-novel-copilot/pkg/logger"
	"z-novel-copilot/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
	// Enabled 是否启用认证
	Enabled bool
}

// Auth 认证中间件
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c)
		if !ok {
			abortWith(c, apperrors.New(apperrors.CodeTokenMissing, "missing authorization header"))
			return
		}

		claims, err := jwtManager.Verify(token)
		if errors.Is(err, utils.ErrExpiredToken) {
			abortWith(c, apperrors.New(apperrors.CodeTokenExpired, "token expired"))
			return
		}
		if err != nil {
			abortWith(c, apperrors.New(apperrors.CodeTokenInvalid, "invalid token"))
			return
		}

		c.Set("user_id", claims.UserID())
		c.Set("role", claims.Role)
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// bearerToken 优先读取 Authorization 头；EventSource 无法设置请求头，允许 access_token 查询参数
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
