package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewJWTManager("secret", "z-novel-copilot")

	token, err := m.Issue("writer-1", "author", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID() != "writer-1" || claims.Role != "author" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	m := NewJWTManager("secret", "z-novel-copilot")

	expired, _ := m.Issue("writer-1", "author", -time.Minute)
	foreign, _ := NewJWTManager("another-secret", "z-novel-copilot").Issue("writer-1", "author", time.Minute)
	otherIssuer, _ := NewJWTManager("secret", "someone-else").Issue("writer-1", "author", time.Minute)

	refreshClaims := Claims{
		TokenUse: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "writer-1",
			Issuer:    "z-novel-copilot",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", expired, ErrExpiredToken},
		{"foreign secret", foreign, ErrInvalidToken},
		{"other issuer", otherIssuer, ErrInvalidToken},
		{"refresh token", refresh, ErrInvalidToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
