package generation

import (
	"context"
	"testing"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
)

type memoryHistory struct {
	created []*entity.GenerationHistory
}

func (m *memoryHistory) Create(_ context.Context, h *entity.GenerationHistory) error {
	m.created = append(m.created, h)
	return nil
}

func (m *memoryHistory) GetByID(context.Context, string) (*entity.GenerationHistory, error) {
	return nil, nil
}

func (m *memoryHistory) ListByProject(context.Context, string, repository.Pagination) (*repository.PagedResult[*entity.GenerationHistory], error) {
	return nil, nil
}

func (m *memoryHistory) MarkAccepted(context.Context, string) error { return nil }

type recordingRecorder struct {
	records []service.HistoryRecord
}

func (r *recordingRecorder) Record(_ context.Context, rec service.HistoryRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func TestHistoryHook_SkipsUnboundOrEmpty(t *testing.T) {
	rec := &recordingRecorder{}
	hook := NewHistoryHook(rec)

	_ = hook.OnComplete(context.Background(), Completion{RequestID: "r1", OutputText: "文本"})
	_ = hook.OnComplete(context.Background(), Completion{RequestID: "r2", ProjectID: "p1"})
	_ = hook.OnComplete(context.Background(), Completion{
		RequestID:  "r3",
		ProjectID:  "p1",
		ChapterID:  "c1",
		Channel:    entity.ChannelInline,
		Action:     entity.ActionContinue,
		OutputText: "风停了。",
	})

	if len(rec.records) != 1 || rec.records[0].RequestID != "r3" || rec.records[0].ChapterID != "c1" {
		t.Fatalf("records = %+v", rec.records)
	}
}

func TestHistoryWriter_Record(t *testing.T) {
	repo := &memoryHistory{}
	w := NewHistoryWriter(repo)

	_ = w.Record(context.Background(), service.HistoryRecord{RequestID: "r1", ProjectID: "p1", OutputText: "a"})
	_ = w.Record(context.Background(), service.HistoryRecord{RequestID: "r2", ProjectID: "p1", ChapterID: "c9", OutputText: "b"})

	if len(repo.created) != 2 {
		t.Fatalf("created = %d", len(repo.created))
	}
	if repo.created[0].ChapterID != nil {
		t.Fatalf("chapter id should be nil, got %v", *repo.created[0].ChapterID)
	}
	if repo.created[1].ChapterID == nil || *repo.created[1].ChapterID != "c9" {
		t.Fatalf("chapter id = %v", repo.created[1].ChapterID)
	}
}
