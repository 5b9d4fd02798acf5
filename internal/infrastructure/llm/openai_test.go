package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-novel-copilot/internal/domain/entity"
)

type fakeChatModel struct {
	parts     []string
	streamErr error
	midErr    error
	lastInput []*schema.Message
}

func (f *fakeChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(strings.Join(f.parts, ""), nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.lastInput = input
	if f.streamErr != nil {
		return nil, f.streamErr
	}

	msgs := make([]*schema.Message, 0, len(f.parts))
	for _, p := range f.parts {
		msgs = append(msgs, schema.AssistantMessage(p, nil))
	}
	if f.midErr == nil {
		return schema.StreamReaderFromArray(msgs), nil
	}

	sr, sw := schema.Pipe[*schema.Message](len(msgs) + 1)
	go func() {
		defer sw.Close()
		for _, m := range msgs {
			sw.Send(m, nil)
		}
		sw.Send(nil, f.midErr)
	}()
	return sr, nil
}

func newFakeAdapter(m *fakeChatModel) *OpenAIAdapter {
	return NewOpenAIAdapterWithBuilder(func(context.Context, Config) (model.BaseChatModel, error) {
		return m, nil
	})
}

func TestOpenAIAdapter_StreamsDeltasThenDone(t *testing.T) {
	m := &fakeChatModel{parts: []string{"他", "", "看向窗外。"}}
	a := newFakeAdapter(m)

	chunks := collect(a.Chat(context.Background(), []Message{
		{Role: entity.RoleSystem, Content: "sys"},
		{Role: entity.RoleUser, Content: "hi"},
	}, Config{Model: "gpt-4o-mini"}))

	if len(chunks) != 3 {
		t.Fatalf("chunks = %+v", chunks)
	}
	if chunks[0].Content != "他" || chunks[1].Content != "看向窗外。" {
		t.Fatalf("unexpected text chunks: %+v", chunks)
	}
	if chunks[2].Type != entity.ChunkDone {
		t.Fatalf("last chunk = %+v, want done", chunks[2])
	}
	if len(m.lastInput) != 2 || m.lastInput[0].Role != schema.System || m.lastInput[1].Role != schema.User {
		t.Fatalf("messages not mapped: %+v", m.lastInput)
	}
}

func TestOpenAIAdapter_StreamOpenErrorBecomesErrorChunk(t *testing.T) {
	a := newFakeAdapter(&fakeChatModel{streamErr: errors.New("401 invalid api key")})

	chunks := collect(a.Chat(context.Background(), nil, Config{}))
	if len(chunks) != 1 || chunks[0].Type != entity.ChunkError {
		t.Fatalf("chunks = %+v", chunks)
	}
	if !strings.Contains(chunks[0].Message, "invalid api key") {
		t.Fatalf("message = %q", chunks[0].Message)
	}
}

func TestOpenAIAdapter_MidStreamErrorEndsSequence(t *testing.T) {
	a := newFakeAdapter(&fakeChatModel{parts: []string{"A"}, midErr: errors.New("connection reset")})

	chunks := collect(a.Chat(context.Background(), nil, Config{}))
	if len(chunks) != 2 {
		t.Fatalf("chunks = %+v", chunks)
	}
	if chunks[0].Content != "A" || chunks[1].Type != entity.ChunkError {
		t.Fatalf("chunks = %+v", chunks)
	}
}

func TestOpenAIAdapter_BuilderErrorAndCaching(t *testing.T) {
	var builds atomic.Int32
	a := NewOpenAIAdapterWithBuilder(func(_ context.Context, cfg Config) (model.BaseChatModel, error) {
		builds.Add(1)
		if cfg.Endpoint == "bad" {
			return nil, errors.New("invalid base url")
		}
		return &fakeChatModel{}, nil
	})

	chunks := collect(a.Chat(context.Background(), nil, Config{Endpoint: "bad"}))
	if len(chunks) != 1 || chunks[0].Type != entity.ChunkError || !strings.HasPrefix(chunks[0].Message, "openai: failed to create client") {
		t.Fatalf("chunks = %+v", chunks)
	}

	cfg := Config{Endpoint: "https://example.test", Model: "m", Credential: "k"}
	collect(a.Chat(context.Background(), nil, cfg))
	collect(a.Chat(context.Background(), nil, cfg))
	if got := builds.Load(); got != 2 {
		t.Fatalf("builds = %d, want 2 (one failed, one cached)", got)
	}
}

func TestOpenAIAdapter_BreakStopsPulling(t *testing.T) {
	a := newFakeAdapter(&fakeChatModel{parts: []string{"a", "b", "c"}})

	var got []string
	for c := range a.Chat(context.Background(), nil, Config{}) {
		got = append(got, c.Content)
		if len(got) == 1 {
			break
		}
	}
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got = %v", got)
	}
}
