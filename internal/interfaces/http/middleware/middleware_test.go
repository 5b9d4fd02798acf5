package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"z-novel-copilot/pkg/logger"
	"z-novel-copilot/pkg/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(mw...)
	handler := func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	}
	engine.GET("/v1/ping", handler)
	engine.GET("/v1/events", handler)
	engine.GET("/health", handler)
	return engine
}

func serve(engine *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	cfg := AuthConfig{Secret: "s3cret", Issuer: "test", SkipPaths: DefaultSkipPaths, Enabled: true}
	engine := newEngine(Auth(cfg))
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	access, err := jwtManager.Issue("u1", "writer", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	expired, _ := jwtManager.Issue("u1", "writer", -time.Minute)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		status int
		body   string
	}{
		{name: "skip path", path: "/health", status: http.StatusOK},
		{name: "missing header", path: "/v1/ping", status: http.StatusUnauthorized},
		{name: "bad scheme", path: "/v1/ping", header: map[string]string{"Authorization": "Basic abc"}, status: http.StatusUnauthorized},
		{name: "garbage token", path: "/v1/ping", header: map[string]string{"Authorization": "Bearer nope"}, status: http.StatusUnauthorized},
		{name: "expired token", path: "/v1/ping", header: map[string]string{"Authorization": "Bearer " + expired}, status: http.StatusUnauthorized},
		{name: "access token", path: "/v1/ping", header: map[string]string{"Authorization": "Bearer " + access}, status: http.StatusOK, body: "u1"},
		{name: "query token", path: "/v1/events?access_token=" + access, status: http.StatusOK, body: "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, tt.path, tt.header)
			if w.Code != tt.status {
				t.Fatalf("status %d, want %d", w.Code, tt.status)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Fatalf("body %q, want %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	engine := newEngine(Auth(AuthConfig{Enabled: false}))
	if w := serve(engine, "/v1/ping", nil); w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Take(_ context.Context, key string, limit int, _ time.Duration) (bool, int, error) {
	f.keys = append(f.keys, key)
	if !f.allowed {
		return false, 0, f.err
	}
	return true, limit - 1, f.err
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	cfg := RateLimitConfig{Enabled: true, RequestsPerSecond: 5, SkipPaths: []string{"/v1/events"}}
	engine := newEngine(RateLimit(cfg, limiter))

	w := serve(engine, "/v1/ping", nil)
	if w.Code != http.StatusOK || w.Header().Get("X-RateLimit-Limit") != "5" || w.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Fatalf("allowed request: status %d headers %v", w.Code, w.Header())
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "ratelimit:192.0.2.1:GET /v1/ping" {
		t.Fatalf("unexpected keys %v", limiter.keys)
	}

	serve(engine, "/v1/events", nil)
	if len(limiter.keys) != 1 {
		t.Fatal("skip paths must not be counted")
	}

	limiter.allowed = false
	if w := serve(engine, "/v1/ping", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("denied request: status %d", w.Code)
	}

	limiter.err = errors.New("redis down")
	if w := serve(engine, "/v1/ping", nil); w.Code != http.StatusOK {
		t.Fatalf("limiter failure must fail open, status %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID())

	w := serve(engine, "/v1/ping", map[string]string{RequestIDHeader: "req-123"})
	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Fatalf("client request id not kept: %q", got)
	}

	for _, bad := range []string{"", "has space", string(make([]byte, 65))} {
		w := serve(engine, "/v1/ping", map[string]string{RequestIDHeader: bad})
		got := w.Header().Get(RequestIDHeader)
		if got == bad || len(got) != 36 {
			t.Errorf("request id %q should be regenerated, got %q", bad, got)
		}
	}
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/boom", func(*gin.Context) { panic("boom") })
	engine.GET("/stream", func(c *gin.Context) {
		c.String(http.StatusOK, "data: partial\n\n")
		panic("mid-stream")
	})

	w := serve(engine, "/boom", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic status = %d", w.Code)
	}

	w = serve(engine, "/stream", nil)
	if w.Code != http.StatusOK || w.Body.String() != "data: partial\n\n" {
		t.Fatalf("written response must not be rewritten: %d %q", w.Code, w.Body.String())
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("info", "json", &buf)
	t.Cleanup(func() { logger.InitWithWriter("info", "json", io.Discard) })

	engine := gin.New()
	engine.Use(Audit())
	engine.GET("/v1/inline", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.DELETE("/v1/generations/:channel", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/inline", nil))
	if buf.Len() != 0 {
		t.Fatalf("GET should not be audited: %s", buf.String())
	}

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/generations/sidebar", nil))
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode audit line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "api audit" || entry["level"] != "WARN" || entry["channel"] != "sidebar" {
		t.Fatalf("audit entry = %v", entry)
	}
	if entry["route"] != "/v1/generations/:channel" {
		t.Fatalf("route = %v", entry["route"])
	}
}
