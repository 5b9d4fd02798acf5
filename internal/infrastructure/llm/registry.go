package llm

import (
	"sync"

	"z-novel-copilot/internal/domain/entity"
	apperrors "z-novel-copilot/pkg/errors"
)

// Registry 按后端协议类型管理适配器
type Registry struct {
	mu       sync.RWMutex
	adapters map[entity.ProviderType]Adapter
}

// NewRegistry 创建适配器注册表
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[entity.ProviderType]Adapter)}
}

// NewDefaultRegistry 注册内置的 openai / anthropic 适配器
func NewDefaultRegistry(openaiAdapter *OpenAIAdapter, anthropicAdapter *AnthropicAdapter) *Registry {
	r := NewRegistry()
	r.Register(entity.ProviderOpenAI, openaiAdapter)
	r.Register(entity.ProviderAnthropic, anthropicAdapter)
	return r
}

// Register 注册或覆盖适配器
func (r *Registry) Register(t entity.ProviderType, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[t] = a
}

// Get 获取适配器
func (r *Registry) Get(t entity.ProviderType) (Adapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[t]
	r.mu.RUnlock()
	if !ok || a == nil {
		return nil, apperrors.New(apperrors.CodeUnknownBackend, "Unknown provider type: "+string(t))
	}
	return a, nil
}
