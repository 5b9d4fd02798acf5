// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// ProjectRepository 作品仓储接口
type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Project, error)
}
