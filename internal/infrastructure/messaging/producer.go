package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-copilot/pkg/logger"
)

const defaultStreamMaxLen = 100000

var tracer = otel.Tracer("messaging")

// Producer 向 Redis Stream 追加消息，流长度按 MAXLEN ~ 近似裁剪
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 序列化消息写入 data 字段，并带上调用方的 trace_id/request_id
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) error {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	if sc := span.SpanContext(); sc.IsValid() && msg.Meta("trace_id") == "" {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && msg.Meta("request_id") == "" {
		msg.SetMetadata("request_id", reqID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	span.SetAttributes(attribute.String("stream.message_id", id))
	return nil
}
