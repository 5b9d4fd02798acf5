// Package messaging 基于 Redis Stream 的异步消息
package messaging

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Message 流中 data 字段的 JSON 信封
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ProjectID string            `json:"project_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 序列化 payload 生成信封，id 同时作为幂等键
func NewMessage(id, msgType, projectID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	return &Message{ID: id, Type: msgType, ProjectID: projectID, Payload: raw, CreatedAt: time.Now()}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string, 4)
	}
	m.Metadata[key] = value
}

// Meta 读取元数据，缺失时为空串
func (m *Message) Meta(key string) string {
	return m.Metadata[key]
}

// DecodePayload 把载荷解析为 T
func DecodePayload[T any](m *Message) (T, error) {
	var v T
	if err := json.Unmarshal(m.Payload, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return v, nil
}

// Stream 流名
type Stream string

// StreamGenerationHistory 生成历史
const StreamGenerationHistory Stream = "stream:generation:history"

// MessageTypeGenerationHistory 生成历史消息类型
const MessageTypeGenerationHistory = "generation_history"

// DLQStream 死信流名
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组名
type ConsumerGroup string

// ConsumerGroupHistoryWriter history-worker 使用的组
const ConsumerGroupHistoryWriter ConsumerGroup = "cg-history-writer"

// WithPrefix 多个部署共用一个 Redis 时按前缀隔离消费者组
func (g ConsumerGroup) WithPrefix(prefix string) ConsumerGroup {
	if prefix == "" {
		return g
	}
	return ConsumerGroup(prefix + ":" + string(g))
}

// BackoffConfig 指数退避：第 n 次重试等待 Initial*Multiplier^n，不超过 Max
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 1s 起步，翻倍，封顶 1 分钟
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// BackoffFromConfig 零值字段回落到默认值
func BackoffFromConfig(initial, max time.Duration, multiplier float64) BackoffConfig {
	b := DefaultBackoffConfig()
	if initial > 0 {
		b.Initial = initial
	}
	if max > 0 {
		b.Max = max
	}
	if multiplier > 1 {
		b.Multiplier = multiplier
	}
	return b
}

// Delay 第 attempt 次重试前的等待时间，attempt 从 0 开始
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return min(c.Initial, c.Max)
	}
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(attempt))
	if d >= float64(c.Max) || math.IsInf(d, 0) {
		return c.Max
	}
	return time.Duration(d)
}
