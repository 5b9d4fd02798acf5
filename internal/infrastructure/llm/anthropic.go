package llm

import (
	"context"
	"iter"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"z-novel-copilot/internal/domain/entity"
)

// Messages API 要求显式给出 max_tokens
const anthropicDefaultMaxTokens = 4096

// AnthropicAdapter 基于 eino 的 Anthropic Messages API 适配器
//
// system 消息由 claude 组件合并进顶层 system 字段。
type AnthropicAdapter struct {
	client *http.Client
	models *chatModels
}

// NewAnthropicAdapter 创建 Anthropic 适配器，client 为 nil 时使用 SDK 默认客户端
func NewAnthropicAdapter(client *http.Client) *AnthropicAdapter {
	a := &AnthropicAdapter{client: client}
	a.models = newChatModels("anthropic", "Claude", a.newChatModel)
	return a
}

// NewAnthropicAdapterWithBuilder 使用自定义构造器
func NewAnthropicAdapterWithBuilder(build ModelBuilder) *AnthropicAdapter {
	return &AnthropicAdapter{models: newChatModels("anthropic", "Claude", build)}
}

func (a *AnthropicAdapter) newChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	mc := &claude.Config{
		APIKey:      cfg.Credential,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		HTTPClient:  a.client,
	}
	if mc.MaxTokens <= 0 {
		mc.MaxTokens = anthropicDefaultMaxTokens
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		mc.BaseURL = &endpoint
	}
	return claude.NewChatModel(ctx, mc)
}

// Chat 实现 Adapter
func (a *AnthropicAdapter) Chat(ctx context.Context, messages []Message, cfg Config) iter.Seq[entity.Chunk] {
	return a.models.stream(ctx, messages, cfg)
}
