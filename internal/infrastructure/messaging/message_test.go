package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/service"
)

func TestBackoffConfig_Delay(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}

	cases := map[int]time.Duration{
		0: time.Second,
		1: 2 * time.Second,
		2: 4 * time.Second,
		3: 5 * time.Second,
		9: 5 * time.Second,
	}
	for retry, want := range cases {
		if got := b.Delay(retry); got != want {
			t.Errorf("Delay(%d) = %v, want %v", retry, got, want)
		}
	}
}

func TestBackoffFromConfig_Defaults(t *testing.T) {
	b := BackoffFromConfig(0, 0, 0)
	if b != DefaultBackoffConfig() {
		t.Fatalf("BackoffFromConfig(zero) = %+v", b)
	}
	b = BackoffFromConfig(500*time.Millisecond, 10*time.Second, 3)
	if b.Initial != 500*time.Millisecond || b.Max != 10*time.Second || b.Multiplier != 3 {
		t.Fatalf("BackoffFromConfig = %+v", b)
	}
}

func TestStream_DLQStream(t *testing.T) {
	if got := StreamGenerationHistory.DLQStream(); got != "dlq:stream:generation:history" {
		t.Fatalf("DLQStream() = %q", got)
	}
}

func TestConsumerGroup_WithPrefix(t *testing.T) {
	if got := ConsumerGroupHistoryWriter.WithPrefix(""); got != ConsumerGroupHistoryWriter {
		t.Fatalf("WithPrefix(\"\") = %q", got)
	}
	if got := ConsumerGroupHistoryWriter.WithPrefix("staging"); got != "staging:cg-history-writer" {
		t.Fatalf("WithPrefix(staging) = %q", got)
	}
}

func TestDecodeHistoryRecord(t *testing.T) {
	rec := service.HistoryRecord{
		ProjectID:  "p1",
		Channel:    entity.ChannelInline,
		Action:     entity.ActionContinue,
		OutputText: "他看向窗外。",
	}
	msg, err := NewMessage("req-1", MessageTypeGenerationHistory, "p1", rec)
	if err != nil {
		t.Fatalf("NewMessage() error: %v", err)
	}
	msg.SetMetadata("channel", "inline")
	if msg.Meta("channel") != "inline" {
		t.Fatalf("metadata = %v", msg.Metadata)
	}

	got, err := DecodeHistoryRecord(msg)
	if err != nil {
		t.Fatalf("DecodeHistoryRecord() error: %v", err)
	}
	if got.RequestID != "req-1" || got.OutputText != "他看向窗外。" || got.Channel != entity.ChannelInline {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestDecodeXMessage(t *testing.T) {
	msg, err := NewMessage("req-2", MessageTypeGenerationHistory, "p1", service.HistoryRecord{OutputText: "雨停了。"})
	if err != nil {
		t.Fatalf("NewMessage() error: %v", err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	got, err := decodeXMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": string(data)}})
	if err != nil {
		t.Fatalf("decodeXMessage() error: %v", err)
	}
	if got.ID != "req-2" || got.Type != MessageTypeGenerationHistory {
		t.Fatalf("decoded = %+v", got)
	}

	if _, err := decodeXMessage(redis.XMessage{ID: "1-1", Values: map[string]interface{}{}}); err == nil {
		t.Fatal("missing data field should fail")
	}
	if _, err := decodeXMessage(redis.XMessage{ID: "1-2", Values: map[string]interface{}{"data": "{"}}); err == nil {
		t.Fatal("malformed json should fail")
	}
}
