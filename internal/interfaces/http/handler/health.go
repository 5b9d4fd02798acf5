// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 2 * time.Second

// InFlightCounter 在途生成数
type InFlightCounter interface {
	InFlight() int
}

// HealthChecker 依赖的就绪探针
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency 参与就绪检查的命名依赖，nil Checker 视为未配置
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler 探针端点
type HealthHandler struct {
	deps     []Dependency
	inflight InFlightCounter
	version  string
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(version string, inflight InFlightCounter, deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, inflight: inflight, version: version}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type dependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type readinessResponse struct {
	Status   string                       `json:"status"`
	InFlight int                          `json:"in_flight"`
	Checks   map[string]*dependencyStatus `json:"checks"`
}

// Health 健康检查
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 并发探测全部依赖，任一失败返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	statuses := make([]*dependencyStatus, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			statuses[i] = probe(ctx, dep.Checker)
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: make(map[string]*dependencyStatus, len(h.deps))}
	for i, dep := range h.deps {
		resp.Checks[dep.Name] = statuses[i]
		if statuses[i].Status != "ok" {
			resp.Status = "not_ready"
		}
	}
	if h.inflight != nil {
		resp.InFlight = h.inflight.InFlight()
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func probe(ctx context.Context, checker HealthChecker) *dependencyStatus {
	if checker == nil {
		return &dependencyStatus{Status: "missing", Error: "not configured"}
	}
	start := time.Now()
	err := checker.HealthCheck(ctx)
	st := &dependencyStatus{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		st.Status = "error"
		st.Error = err.Error()
	}
	return st
}

// Live 存活检查
// @Summary 存活检查
// @Tags System
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
