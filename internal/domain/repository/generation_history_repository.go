// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// GenerationHistoryRepository 生成历史仓储接口
type GenerationHistoryRepository interface {
	// Create 写入一条记录，同一 RequestID 重复写入时忽略
	Create(ctx context.Context, history *entity.GenerationHistory) error

	// GetByID 根据 ID 获取记录，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.GenerationHistory, error)

	// ListByProject 分页列出项目的生成历史（新的在前）
	ListByProject(ctx context.Context, projectID string, pagination Pagination) (*PagedResult[*entity.GenerationHistory], error)

	// MarkAccepted 标记为已采纳
	MarkAccepted(ctx context.Context, id string) error
}
