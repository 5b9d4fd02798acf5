package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-novel-copilot/internal/domain/entity"
)

// ModelBuilder 根据连接参数构造 eino ChatModel
type ModelBuilder func(ctx context.Context, cfg Config) (model.BaseChatModel, error)

// chatModels eino ChatModel 缓存与流式读取，各后端适配器共用
type chatModels struct {
	backend string
	kind    string
	build   ModelBuilder

	mu     sync.RWMutex
	models map[string]model.BaseChatModel
}

func newChatModels(backend, kind string, build ModelBuilder) *chatModels {
	return &chatModels{
		backend: backend,
		kind:    kind,
		build:   build,
		models:  make(map[string]model.BaseChatModel),
	}
}

// stream 把 eino 的消息流转换为分片序列
func (c *chatModels) stream(ctx context.Context, messages []Message, cfg Config) iter.Seq[entity.Chunk] {
	return oneShot(func(yield func(entity.Chunk) bool) {
		cm, err := c.model(ctx, cfg)
		if err != nil {
			yield(entity.ErrorChunk(fmt.Sprintf("%s: failed to create client: %v", c.backend, err)))
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// 直接调用组件时需要手动初始化 callbacks，全局 handler 才会生效
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      c.backend + "-adapter",
			Type:      c.kind,
			Component: components.ComponentOfChatModel,
		})

		reader, err := cm.Stream(ctx, toSchemaMessages(messages), streamOptions(cfg)...)
		if err != nil {
			yield(entity.ErrorChunk(describe(ctx, c.backend, err)))
			return
		}
		defer reader.Close()

		for {
			msg, err := reader.Recv()
			if errors.Is(err, io.EOF) {
				yield(entity.DoneChunk())
				return
			}
			if err != nil {
				yield(entity.ErrorChunk(describe(ctx, c.backend, err)))
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}
			if !yield(entity.TextChunk(msg.Content)) {
				return
			}
		}
	})
}

// model 按 (endpoint, model, credential) 缓存 ChatModel
func (c *chatModels) model(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	key := modelKey(cfg)

	c.mu.RLock()
	m, ok := c.models[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok = c.models[key]; ok {
		return m, nil
	}

	m, err := c.build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.models[key] = m
	return m, nil
}

func modelKey(cfg Config) string {
	sum := sha256.Sum256([]byte(cfg.Credential))
	return cfg.Endpoint + "|" + cfg.Model + "|" + hex.EncodeToString(sum[:8])
}

func streamOptions(cfg Config) []model.Option {
	var opts []model.Option
	if cfg.Model != "" {
		opts = append(opts, model.WithModel(cfg.Model))
	}
	if cfg.Temperature != nil {
		opts = append(opts, model.WithTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(cfg.MaxTokens))
	}
	return opts
}

func toSchemaMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		var role schema.RoleType
		switch m.Role {
		case entity.RoleSystem:
			role = schema.System
		case entity.RoleAssistant:
			role = schema.Assistant
		default:
			role = schema.User
		}
		out = append(out, &schema.Message{Role: role, Content: m.Content})
	}
	return out
}
