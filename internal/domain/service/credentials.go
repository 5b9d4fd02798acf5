// Package service 定义跨层的稳定契约（port），基础设施层实现、应用层消费
package service

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// ResolvedProvider 一次请求所需的连接参数
type ResolvedProvider struct {
	ProviderID string
	Type       entity.ProviderType
	Endpoint   string
	Credential string
	Model      string
	MaxTokens  int
}

// CredentialResolver 根据后端标识查找连接参数
// 未找到或解密失败时返回错误，由协调器转成流内 error 分片
type CredentialResolver interface {
	Resolve(ctx context.Context, providerID string) (*ResolvedProvider, error)
}
