package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-novel-copilot/internal/domain/entity"
)

func TestAnthropicAdapter_StreamsDeltasThenDone(t *testing.T) {
	m := &fakeChatModel{parts: []string{"Hel", "lo"}}
	a := NewAnthropicAdapterWithBuilder(func(context.Context, Config) (model.BaseChatModel, error) {
		return m, nil
	})

	chunks := collect(a.Chat(context.Background(), []Message{
		{Role: entity.RoleSystem, Content: "s1"},
		{Role: entity.RoleUser, Content: "hi"},
		{Role: entity.RoleAssistant, Content: "yo"},
	}, Config{Model: "claude-test"}))

	if len(chunks) != 3 || chunks[0].Content != "Hel" || chunks[1].Content != "lo" || chunks[2].Type != entity.ChunkDone {
		t.Fatalf("chunks = %+v", chunks)
	}
	if len(m.lastInput) != 3 || m.lastInput[0].Role != schema.System || m.lastInput[2].Role != schema.Assistant {
		t.Fatalf("messages not mapped: %+v", m.lastInput)
	}
}

func TestAnthropicAdapter_ErrorsArePrefixed(t *testing.T) {
	a := NewAnthropicAdapterWithBuilder(func(_ context.Context, cfg Config) (model.BaseChatModel, error) {
		if cfg.Credential == "" {
			return nil, errors.New("missing api key")
		}
		return &fakeChatModel{streamErr: errors.New("invalid x-api-key")}, nil
	})

	chunks := collect(a.Chat(context.Background(), nil, Config{}))
	if len(chunks) != 1 || !strings.HasPrefix(chunks[0].Message, "anthropic: failed to create client") {
		t.Fatalf("builder error chunks = %+v", chunks)
	}

	chunks = collect(a.Chat(context.Background(), nil, Config{Credential: "sk-test"}))
	if len(chunks) != 1 || chunks[0].Type != entity.ChunkError || chunks[0].Message != "anthropic: invalid x-api-key" {
		t.Fatalf("stream error chunks = %+v", chunks)
	}
}

func TestAnthropicAdapter_CachesModelPerConnection(t *testing.T) {
	var builds atomic.Int32
	var maxTokens atomic.Int32
	a := NewAnthropicAdapterWithBuilder(func(_ context.Context, cfg Config) (model.BaseChatModel, error) {
		builds.Add(1)
		maxTokens.Store(int32(cfg.MaxTokens))
		return &fakeChatModel{parts: []string{"x"}}, nil
	})

	cfg := Config{Endpoint: "https://example.test", Model: "claude-test", Credential: "k1", MaxTokens: 256}
	collect(a.Chat(context.Background(), nil, cfg))
	collect(a.Chat(context.Background(), nil, cfg))
	if got := builds.Load(); got != 1 {
		t.Fatalf("builds = %d, want 1", got)
	}

	cfg.Credential = "k2"
	collect(a.Chat(context.Background(), nil, cfg))
	if got := builds.Load(); got != 2 {
		t.Fatalf("builds = %d, want 2 after credential change", got)
	}
	if maxTokens.Load() != 256 {
		t.Fatalf("max tokens = %d", maxTokens.Load())
	}
}

func TestNewAnthropicAdapter_BuildsClaudeModel(t *testing.T) {
	a := NewAnthropicAdapter(&http.Client{})
	m, err := a.newChatModel(context.Background(), Config{
		Endpoint:   "https://gateway.example.test",
		Credential: "sk-test",
		Model:      "claude-test",
	})
	if err != nil {
		t.Fatalf("newChatModel error: %v", err)
	}
	if m == nil {
		t.Fatal("model is nil")
	}
}
