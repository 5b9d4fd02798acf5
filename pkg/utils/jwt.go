// Package utils 提供通用工具函数
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// tokenUseAccess 访问令牌的 token_use 取值，其他取值一律拒绝
const tokenUseAccess = "access"

// Claims 访问令牌声明，用户 ID 存放在 sub
type Claims struct {
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// UserID 令牌主体
func (c *Claims) UserID() string {
	return c.Subject
}

// JWTManager HS256 访问令牌的签发与校验
type JWTManager struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(secret, issuer string) *JWTManager {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTManager{secret: []byte(secret), issuer: issuer, parser: jwt.NewParser(opts...)}
}

// Issue 签发访问令牌
func (m *JWTManager) Issue(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:     role,
		TokenUse: tokenUseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify 校验签名、签发方与有效期，只接受访问令牌
func (m *JWTManager) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := m.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.TokenUse != tokenUseAccess || claims.Subject == "":
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
