package entity

import (
	"time"
	"unicode/utf8"
)

// Chapter 章节，正文为纯文本，偏移量按字符 (rune) 计
type Chapter struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID string    `json:"project_id" gorm:"type:uuid;index;not null"`
	SeqNum    int       `json:"seq_num" gorm:"not null"`
	Title     string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Summary   string    `json:"summary,omitempty" gorm:"type:text"`
	Content   string    `json:"content" gorm:"type:text"`
	WordCount int       `json:"word_count" gorm:"default:0"`
	Version   int       `json:"version" gorm:"default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// InsertAt 在字符偏移处插入文本，越界时夹到两端
func (c *Chapter) InsertAt(offset int, text string) {
	runes := []rune(c.Content)
	if offset < 0 {
		offset = 0
	}
	if offset > len(runes) {
		offset = len(runes)
	}
	c.Content = string(runes[:offset]) + text + string(runes[offset:])
	c.WordCount = utf8.RuneCountInString(c.Content)
	c.Version++
}

// Tail 返回正文末尾至多 n 个字符
func (c *Chapter) Tail(n int) string {
	runes := []rune(c.Content)
	if n <= 0 || len(runes) <= n {
		return c.Content
	}
	return string(runes[len(runes)-n:])
}
