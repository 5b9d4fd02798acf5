package entity

import (
	"time"
)

// ProviderType 后端协议类型，决定使用哪个适配器
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
)

// Provider 生成后端配置
type Provider struct {
	ID      string       `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name    string       `json:"name" gorm:"type:varchar(128);not null"`
	Type    ProviderType `json:"type" gorm:"type:varchar(32);not null"`
	BaseURL string       `json:"base_url" gorm:"type:varchar(512)"`
	Model   string       `json:"model" gorm:"type:varchar(128);not null"`
	// APIKeyCipher secretbox 密文 (base64)
	APIKeyCipher string    `json:"-" gorm:"column:api_key_cipher;type:text"`
	MaxTokens    int       `json:"max_tokens" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Provider) TableName() string {
	return "providers"
}
