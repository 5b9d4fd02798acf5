// Package llm 将不同的远端生成后端归一为统一的流式分片序列
package llm

import (
	"context"
	"iter"
	"sync/atomic"

	"z-novel-copilot/internal/domain/entity"
)

// Message 角色标注的对话消息
type Message struct {
	Role    entity.Role `json:"role"`
	Content string      `json:"content"`
}

// Config 连接参数
type Config struct {
	Endpoint    string
	Credential  string
	Model       string
	Temperature *float32
	MaxTokens   int
}

// Adapter 后端适配器
//
// Chat 返回惰性、有限、不可重放的分片序列：
//   - 成功时以恰好一个 done 结束
//   - 任何传输或后端错误产出恰好一个 error 后结束，不向外抛出
//   - 消费方 break 即停止拉取，ctx 取消时底层读取随之中止
type Adapter interface {
	Chat(ctx context.Context, messages []Message, cfg Config) iter.Seq[entity.Chunk]
}

// AdapterFunc 便于测试与组合
type AdapterFunc func(ctx context.Context, messages []Message, cfg Config) iter.Seq[entity.Chunk]

func (f AdapterFunc) Chat(ctx context.Context, messages []Message, cfg Config) iter.Seq[entity.Chunk] {
	return f(ctx, messages, cfg)
}

// oneShot 第二次遍历只得到一个 error 分片
func oneShot(seq iter.Seq[entity.Chunk]) iter.Seq[entity.Chunk] {
	var used atomic.Bool
	return func(yield func(entity.Chunk) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(entity.ErrorChunk("stream already consumed"))
			return
		}
		seq(yield)
	}
}
