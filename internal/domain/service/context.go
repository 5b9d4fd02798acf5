package service

import "context"

// ContextRef 上下文装配的定位信息
type ContextRef struct {
	ProjectID string
	ChapterID string
}

// ContextAssembler 返回折叠进 messages 的参考文本
type ContextAssembler interface {
	Assemble(ctx context.Context, ref ContextRef) (string, error)
}
