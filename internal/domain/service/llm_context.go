package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyChannel  llmCtxKey = "llm_channel"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

// WithChannel 标记本次 LLM 调用所属通道，供 eino callbacks 打标签
func WithChannel(ctx context.Context, channel string) context.Context {
	if ctx == nil {
		return nil
	}
	c := strings.TrimSpace(channel)
	if c == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyChannel, c)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

func WithChannelProvider(ctx context.Context, channel, provider string) context.Context {
	return WithProvider(WithChannel(ctx, channel), provider)
}

func ChannelFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, llmCtxKeyChannel)
}

func ProviderFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, llmCtxKeyProvider)
}

func valueOrUnknown(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
