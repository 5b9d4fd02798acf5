package postgres

import (
	"fmt"

	"z-novel-copilot/internal/domain/entity"
)

// Migrate 自动迁移表结构
func (c *Client) Migrate() error {
	if err := c.db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto: %w", err)
	}
	if err := c.db.AutoMigrate(
		&entity.Project{},
		&entity.Chapter{},
		&entity.Provider{},
		&entity.Conversation{},
		&entity.ConversationMessage{},
		&entity.GenerationHistory{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
