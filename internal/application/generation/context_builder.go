package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
	apperrors "z-novel-copilot/pkg/errors"
)

const precedingChapters = 5

// ContextCache read-through 缓存
type ContextCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (string, error)) (string, error)
}

// ChapterContext 由作品简介与前序章节摘要组成的参考资料
type ChapterContext struct {
	projects repository.ProjectRepository
	chapters repository.ChapterRepository
	cache    ContextCache
	ttl      time.Duration
	maxRunes int
}

// NewChapterContext 创建上下文装配器；cache 为 nil 时不缓存
func NewChapterContext(projects repository.ProjectRepository, chapters repository.ChapterRepository, cache ContextCache, ttl time.Duration, maxRunes int) *ChapterContext {
	return &ChapterContext{
		projects: projects,
		chapters: chapters,
		cache:    cache,
		ttl:      ttl,
		maxRunes: maxRunes,
	}
}

// CacheKey 章节上下文缓存键
func CacheKey(projectID, chapterID string) string {
	return fmt.Sprintf("ctx:%s:%s", projectID, chapterID)
}

// Assemble 实现 service.ContextAssembler
func (c *ChapterContext) Assemble(ctx context.Context, ref service.ContextRef) (string, error) {
	if c.cache == nil || c.ttl <= 0 {
		return c.load(ctx, ref)
	}

	return c.cache.GetOrLoad(ctx, CacheKey(ref.ProjectID, ref.ChapterID), c.ttl, func(ctx context.Context) (string, error) {
		return c.load(ctx, ref)
	})
}

func (c *ChapterContext) load(ctx context.Context, ref service.ContextRef) (string, error) {
	project, err := c.projects.GetByID(ctx, ref.ProjectID)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", apperrors.New(apperrors.CodeProjectNotFound, "project not found")
	}

	var b strings.Builder
	b.WriteString("作品：")
	b.WriteString(project.Title)
	if project.Genre != "" {
		b.WriteString("（" + project.Genre + "）")
	}
	if desc := strings.TrimSpace(project.Description); desc != "" {
		b.WriteString("\n简介：")
		b.WriteString(desc)
	}

	if ref.ChapterID != "" {
		chapter, err := c.chapters.GetByID(ctx, ref.ChapterID)
		if err != nil {
			return "", err
		}
		if chapter == nil {
			return "", apperrors.ErrChapterNotFound
		}

		preceding, err := c.chapters.ListPreceding(ctx, chapter.ProjectID, chapter.SeqNum, precedingChapters)
		if err != nil {
			return "", err
		}
		if len(preceding) > 0 {
			b.WriteString("\n\n前情：")
			for _, ch := range preceding {
				fmt.Fprintf(&b, "\n第%d章 %s", ch.SeqNum, ch.Title)
				if s := strings.TrimSpace(ch.Summary); s != "" {
					b.WriteString("：")
					b.WriteString(s)
				}
			}
		}
		if s := strings.TrimSpace(chapter.Summary); s != "" {
			fmt.Fprintf(&b, "\n\n本章（第%d章 %s）梗概：%s", chapter.SeqNum, chapter.Title, s)
		}
	}

	return truncateRunes(b.String(), c.maxRunes), nil
}

// truncateRunes 超长时保留末尾
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
