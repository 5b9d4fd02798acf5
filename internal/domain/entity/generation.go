package entity

import (
	"time"
)

// GenerationAction 生成动作，作为历史记录的动作标签
type GenerationAction string

const (
	ActionContinue GenerationAction = "continue"
	ActionPolish   GenerationAction = "polish"
	ActionRewrite  GenerationAction = "rewrite"
	ActionChat     GenerationAction = "chat"
)

// Valid 是否为已知动作
func (a GenerationAction) Valid() bool {
	switch a {
	case ActionContinue, ActionPolish, ActionRewrite, ActionChat:
		return true
	}
	return false
}

// TargetLength 期望输出长度
type TargetLength string

const (
	TargetLengthShort  TargetLength = "short"
	TargetLengthMedium TargetLength = "medium"
	TargetLengthLong   TargetLength = "long"
)

// GenerationOptions 用户可调的生成参数
type GenerationOptions struct {
	Temperature  *float32     `json:"temperature,omitempty"`
	TargetLength TargetLength `json:"target_length,omitempty"`
}

// GenerationHistory 生成历史记录
type GenerationHistory struct {
	ID         string             `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RequestID  string             `json:"request_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	ProjectID  string             `json:"project_id" gorm:"type:uuid;index;not null"`
	ChapterID  *string            `json:"chapter_id,omitempty" gorm:"type:uuid;index"`
	Channel    Channel            `json:"channel" gorm:"type:varchar(16);not null"`
	Action     GenerationAction   `json:"action" gorm:"type:varchar(32);not null"`
	ProviderID string             `json:"provider_id" gorm:"type:varchar(64)"`
	InputText  string             `json:"input_text" gorm:"type:text"`
	OutputText string             `json:"output_text" gorm:"type:text"`
	Options    *GenerationOptions `json:"options,omitempty" gorm:"type:jsonb;serializer:json"`
	Accepted   bool               `json:"accepted" gorm:"not null;default:false"`
	CreatedAt  time.Time          `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (GenerationHistory) TableName() string {
	return "generation_histories"
}
