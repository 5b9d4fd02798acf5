package handler

import (
	"sync"
)

// 快照事件名，按此顺序推送
var snapshotKinds = []string{"suggestion", "chat"}

// SnapshotHub 把会话快照广播给 SSE 连接
// 每个连接对每种快照只保留最新一份，Publish 永不阻塞
type SnapshotHub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	mu      sync.Mutex
	pending map[string]any
	notify  chan struct{}
}

// NewSnapshotHub 创建快照广播
func NewSnapshotHub() *SnapshotHub {
	return &SnapshotHub{clients: make(map[*hubClient]struct{})}
}

// Publish 覆盖各连接尚未推送的同类快照
func (h *SnapshotHub) Publish(kind string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.mu.Lock()
		c.pending[kind] = payload
		c.mu.Unlock()

		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
}

func (h *SnapshotHub) subscribe() *hubClient {
	c := &hubClient{pending: make(map[string]any), notify: make(chan struct{}, 1)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *SnapshotHub) unsubscribe(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

type snapshotEvent struct {
	kind    string
	payload any
}

// drain 取出待推送快照
func (c *hubClient) drain() []snapshotEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]snapshotEvent, 0, len(c.pending))
	for _, kind := range snapshotKinds {
		if p, ok := c.pending[kind]; ok {
			events = append(events, snapshotEvent{kind: kind, payload: p})
			delete(c.pending, kind)
		}
	}
	return events
}
