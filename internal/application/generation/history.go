package generation

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
)

// HistoryHook 把成功的生成交给 HistoryRecorder
type HistoryHook struct {
	recorder service.HistoryRecorder
}

// NewHistoryHook 创建历史记录钩子
func NewHistoryHook(recorder service.HistoryRecorder) *HistoryHook {
	return &HistoryHook{recorder: recorder}
}

func (h *HistoryHook) Name() string { return "history" }

// OnComplete 未关联作品或无输出的请求不记录
func (h *HistoryHook) OnComplete(ctx context.Context, c Completion) error {
	if c.ProjectID == "" || c.OutputText == "" {
		return nil
	}
	return h.recorder.Record(ctx, service.HistoryRecord{
		RequestID:  c.RequestID,
		ProjectID:  c.ProjectID,
		ChapterID:  c.ChapterID,
		Channel:    c.Channel,
		Action:     c.Action,
		ProviderID: c.ProviderID,
		InputText:  c.InputText,
		OutputText: c.OutputText,
		Options:    c.Options,
	})
}

// HistoryWriter 直接写库；Stream 关闭时作为 HistoryRecorder，也被 history-worker 复用
type HistoryWriter struct {
	repo repository.GenerationHistoryRepository
}

// NewHistoryWriter 创建历史写入器
func NewHistoryWriter(repo repository.GenerationHistoryRepository) *HistoryWriter {
	return &HistoryWriter{repo: repo}
}

// Record 实现 service.HistoryRecorder
func (w *HistoryWriter) Record(ctx context.Context, rec service.HistoryRecord) error {
	h := &entity.GenerationHistory{
		RequestID:  rec.RequestID,
		ProjectID:  rec.ProjectID,
		Channel:    rec.Channel,
		Action:     rec.Action,
		ProviderID: rec.ProviderID,
		InputText:  rec.InputText,
		OutputText: rec.OutputText,
		Options:    rec.Options,
	}
	if rec.ChapterID != "" {
		chapterID := rec.ChapterID
		h.ChapterID = &chapterID
	}
	return w.repo.Create(ctx, h)
}
