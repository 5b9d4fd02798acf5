package entity

import (
	"time"
)

// ConversationRef 对话定位键 (projectId, chapterId?)
type ConversationRef struct {
	ProjectID string  `json:"project_id"`
	ChapterID *string `json:"chapter_id,omitempty"`
}

// Key 用作缓存键与 StreamChunk.ConversationID 前缀
func (r ConversationRef) Key() string {
	if r.ChapterID == nil || *r.ChapterID == "" {
		return r.ProjectID
	}
	return r.ProjectID + ":" + *r.ChapterID
}

// Conversation 对话
type Conversation struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID string    `json:"project_id" gorm:"type:uuid;index:idx_conversation_ref;not null"`
	ChapterID *string   `json:"chapter_id,omitempty" gorm:"type:uuid;index:idx_conversation_ref"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationMessage 对话记录条目
type ConversationMessage struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID string    `json:"conversation_id" gorm:"type:uuid;index;not null"`
	Role           Role      `json:"role" gorm:"type:varchar(16);not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	Interrupted    bool      `json:"interrupted" gorm:"not null;default:false"`
	// Failed 错误条目只在内存中展示，不落库
	Failed    bool      `json:"failed" gorm:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
