package messaging

import (
	"context"

	"z-novel-copilot/internal/domain/service"
)

// HistoryPublisher 把生成历史投递到 Redis Stream，由 history-worker 异步落库
type HistoryPublisher struct {
	producer *Producer
}

// NewHistoryPublisher 创建历史投递器
func NewHistoryPublisher(producer *Producer) *HistoryPublisher {
	return &HistoryPublisher{producer: producer}
}

// Record 实现 service.HistoryRecorder
func (h *HistoryPublisher) Record(ctx context.Context, rec service.HistoryRecord) error {
	msg, err := NewMessage(rec.RequestID, MessageTypeGenerationHistory, rec.ProjectID, rec)
	if err != nil {
		return err
	}
	msg.SetMetadata("channel", string(rec.Channel))
	msg.SetMetadata("request_id", rec.RequestID)
	return h.producer.Publish(ctx, StreamGenerationHistory, msg)
}

// DecodeHistoryRecord 解析历史消息载荷
func DecodeHistoryRecord(msg *Message) (*service.HistoryRecord, error) {
	rec, err := DecodePayload[service.HistoryRecord](msg)
	if err != nil {
		return nil, err
	}
	if rec.RequestID == "" {
		rec.RequestID = msg.ID
	}
	return &rec, nil
}
