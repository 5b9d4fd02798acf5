// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// ListPreceding 获取序号小于 seqNum 的最近 limit 个章节（按序号升序）
	ListPreceding(ctx context.Context, projectID string, seqNum, limit int) ([]*entity.Chapter, error)

	// InsertText 在正文字符偏移处插入文本，返回更新后的章节
	InsertText(ctx context.Context, id string, offset int, text string) (*entity.Chapter, error)
}
