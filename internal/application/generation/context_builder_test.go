package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/service"
	apperrors "z-novel-copilot/pkg/errors"
)

type stubProjects map[string]*entity.Project

func (s stubProjects) Create(context.Context, *entity.Project) error { return nil }

func (s stubProjects) GetByID(_ context.Context, id string) (*entity.Project, error) {
	return s[id], nil
}

type stubChapters []*entity.Chapter

func (s stubChapters) Create(context.Context, *entity.Chapter) error { return nil }

func (s stubChapters) GetByID(_ context.Context, id string) (*entity.Chapter, error) {
	for _, ch := range s {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}

func (s stubChapters) ListPreceding(_ context.Context, projectID string, seqNum, limit int) ([]*entity.Chapter, error) {
	var out []*entity.Chapter
	for _, ch := range s {
		if ch.ProjectID == projectID && ch.SeqNum < seqNum {
			out = append(out, ch)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s stubChapters) InsertText(context.Context, string, int, string) (*entity.Chapter, error) {
	return nil, errors.New("not supported")
}

type countingCache struct {
	data  map[string]string
	loads int
}

func (c *countingCache) GetOrLoad(ctx context.Context, key string, _ time.Duration, loader func(ctx context.Context) (string, error)) (string, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	c.loads++
	v, err := loader(ctx)
	if err != nil {
		return "", err
	}
	c.data[key] = v
	return v, nil
}

func contextFixture() (stubProjects, stubChapters) {
	projects := stubProjects{"p1": {ID: "p1", Title: "夜航", Genre: "悬疑", Description: "渡轮上的秘密。"}}
	chapters := stubChapters{
		{ID: "c1", ProjectID: "p1", SeqNum: 1, Title: "离港", Summary: "主角登船。"},
		{ID: "c2", ProjectID: "p1", SeqNum: 2, Title: "雾", Summary: "大雾封航。"},
	}
	return projects, chapters
}

func TestChapterContext_Assemble(t *testing.T) {
	projects, chapters := contextFixture()
	cc := NewChapterContext(projects, chapters, nil, 0, 0)

	got, err := cc.Assemble(context.Background(), service.ContextRef{ProjectID: "p1", ChapterID: "c2"})
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	for _, want := range []string{"作品：夜航（悬疑）", "简介：渡轮上的秘密。", "第1章 离港：主角登船。", "本章（第2章 雾）梗概：大雾封航。"} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q:\n%s", want, got)
		}
	}
}

func TestChapterContext_NotFound(t *testing.T) {
	projects, chapters := contextFixture()
	cc := NewChapterContext(projects, chapters, nil, 0, 0)

	_, err := cc.Assemble(context.Background(), service.ContextRef{ProjectID: "missing"})
	if !apperrors.IsCode(err, apperrors.CodeProjectNotFound) {
		t.Fatalf("missing project error = %v", err)
	}
	_, err = cc.Assemble(context.Background(), service.ContextRef{ProjectID: "p1", ChapterID: "missing"})
	if !apperrors.IsCode(err, apperrors.CodeChapterNotFound) {
		t.Fatalf("missing chapter error = %v", err)
	}
}

func TestChapterContext_TruncatesKeepingTail(t *testing.T) {
	projects, chapters := contextFixture()
	cc := NewChapterContext(projects, chapters, nil, 0, 6)

	got, err := cc.Assemble(context.Background(), service.ContextRef{ProjectID: "p1", ChapterID: "c2"})
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if got != "：大雾封航。" {
		t.Fatalf("truncated = %q", got)
	}
}

func TestChapterContext_UsesCache(t *testing.T) {
	projects, chapters := contextFixture()
	cache := &countingCache{data: map[string]string{}}
	cc := NewChapterContext(projects, chapters, cache, time.Minute, 0)
	ref := service.ContextRef{ProjectID: "p1", ChapterID: "c1"}

	first, err := cc.Assemble(context.Background(), ref)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	second, _ := cc.Assemble(context.Background(), ref)
	if first != second || cache.loads != 1 {
		t.Fatalf("loads = %d, first=%q second=%q", cache.loads, first, second)
	}
	if _, ok := cache.data[CacheKey("p1", "c1")]; !ok {
		t.Fatalf("cache keys = %v", cache.data)
	}
}
