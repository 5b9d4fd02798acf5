package handler

import (
	"io"
	"time"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/application/session"
	"z-novel-copilot/internal/interfaces/http/dto"
	"z-novel-copilot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// EventsHandler SSE 推送：原始分片与会话快照
type EventsHandler struct {
	router    *generation.Router
	ws        *session.Workspace
	hub       *SnapshotHub
	heartbeat time.Duration
	// sendTimeout 连接缓冲写满后的最长等待，超时的连接被断开
	sendTimeout time.Duration
}

// NewEventsHandler 创建事件处理器，并把会话变更接入快照广播
func NewEventsHandler(router *generation.Router, ws *session.Workspace, heartbeat, sendTimeout time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if sendTimeout <= 0 {
		sendTimeout = 2 * time.Second
	}
	hub := NewSnapshotHub()
	ws.Suggestion.OnChange(func(st session.SuggestionState) {
		hub.Publish("suggestion", dto.ToSuggestionResponse(st))
	})
	ws.Chat.OnChange(func(snap session.ChatSnapshot) {
		hub.Publish("chat", dto.ToChatResponse(snap))
	})
	return &EventsHandler{router: router, ws: ws, hub: hub, heartbeat: heartbeat, sendTimeout: sendTimeout}
}

// Stream 推送事件直到客户端断开
// 跟不上分片速度的连接会被断开，客户端重连后先收到完整快照
// @Summary 订阅事件流
// @Description chunk: 每个 StreamChunk；suggestion / chat: 会话快照；heartbeat: 心跳
// @Tags Events
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /v1/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	sub := h.router.Subscribe(generation.WithEviction(h.sendTimeout))
	defer sub.Close()
	client := h.hub.subscribe()
	defer h.hub.unsubscribe(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// 连接建立时先推送一次完整状态
	c.SSEvent("suggestion", dto.ToSuggestionResponse(h.ws.Suggestion.State()))
	c.SSEvent("chat", dto.ToChatResponse(h.ws.Chat.Snapshot()))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	logger.Debug(ctx, "event stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case chunk := <-sub.C():
			c.SSEvent("chunk", chunk)
			return true
		case <-client.notify:
			for _, ev := range client.drain() {
				c.SSEvent(ev.kind, ev.payload)
			}
			return true
		case <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().Unix()})
			return true
		case <-sub.Done():
			if sub.Evicted() {
				logger.Warn(ctx, "event stream evicted, client stopped reading")
			}
			return false
		case <-ctx.Done():
			return false
		}
	})
	logger.Debug(ctx, "event stream closed")
}
