package llm

import (
	"context"
	"iter"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"z-novel-copilot/internal/domain/entity"
)

// OpenAIAdapter 基于 eino 的 OpenAI 兼容后端适配器（逐 token delta）
type OpenAIAdapter struct {
	timeout time.Duration
	models  *chatModels
}

// NewOpenAIAdapter 创建 OpenAI 兼容适配器
func NewOpenAIAdapter(timeout time.Duration) *OpenAIAdapter {
	a := &OpenAIAdapter{timeout: timeout}
	a.models = newChatModels("openai", "OpenAI", a.newChatModel)
	return a
}

// NewOpenAIAdapterWithBuilder 使用自定义构造器（测试或私有部署网关）
func NewOpenAIAdapterWithBuilder(build ModelBuilder) *OpenAIAdapter {
	return &OpenAIAdapter{models: newChatModels("openai", "OpenAI", build)}
}

func (a *OpenAIAdapter) newChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	mc := &openai.ChatModelConfig{
		APIKey:  cfg.Credential,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
		Timeout: a.timeout,
	}
	return openai.NewChatModel(ctx, mc)
}

// Chat 实现 Adapter
func (a *OpenAIAdapter) Chat(ctx context.Context, messages []Message, cfg Config) iter.Seq[entity.Chunk] {
	return a.models.stream(ctx, messages, cfg)
}
