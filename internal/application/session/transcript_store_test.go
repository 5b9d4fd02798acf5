package session

import (
	"context"
	"testing"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/service"
)

type memoryConversations struct {
	created  int
	convs    map[string]*entity.Conversation
	messages map[string][]*entity.ConversationMessage
}

func newMemoryConversations() *memoryConversations {
	return &memoryConversations{
		convs:    make(map[string]*entity.Conversation),
		messages: make(map[string][]*entity.ConversationMessage),
	}
}

func (m *memoryConversations) GetOrCreate(_ context.Context, ref entity.ConversationRef) (*entity.Conversation, error) {
	if c, ok := m.convs[ref.Key()]; ok {
		return c, nil
	}
	m.created++
	c := &entity.Conversation{ID: "conv-" + ref.Key(), ProjectID: ref.ProjectID, ChapterID: ref.ChapterID}
	m.convs[ref.Key()] = c
	return c, nil
}

func (m *memoryConversations) ListMessages(_ context.Context, id string) ([]*entity.ConversationMessage, error) {
	return m.messages[id], nil
}

func (m *memoryConversations) AppendMessage(_ context.Context, msg *entity.ConversationMessage) error {
	msg.ID = msg.ConversationID + "-" + string(rune('a'+len(m.messages[msg.ConversationID])))
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	return nil
}

func (m *memoryConversations) ClearMessages(_ context.Context, id string) error {
	delete(m.messages, id)
	return nil
}

func TestRepositoryTranscript(t *testing.T) {
	repo := newMemoryConversations()
	store := NewRepositoryTranscript(repo)
	ctx := context.Background()
	chapterID := "c1"
	chapterRef := entity.ConversationRef{ProjectID: "p1", ChapterID: &chapterID}

	id, err := store.Append(ctx, chapterRef, service.TranscriptEntry{Role: entity.RoleUser, Content: "q"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == "" {
		t.Fatal("Append must return the entry id")
	}
	if _, err := store.Append(ctx, chapterRef, service.TranscriptEntry{Role: entity.RoleAssistant, Content: "a", Interrupted: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if repo.created != 1 {
		t.Fatalf("conversation must be resolved once, created %d", repo.created)
	}

	history, err := store.LoadHistory(ctx, chapterRef)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(history) != 2 || history[0].Content != "q" || !history[1].Interrupted {
		t.Fatalf("unexpected history %+v", history)
	}

	// 作品级对话与章节级对话互不影响
	projectHistory, _ := store.LoadHistory(ctx, entity.ConversationRef{ProjectID: "p1"})
	if len(projectHistory) != 0 {
		t.Fatalf("project conversation must be separate, got %+v", projectHistory)
	}

	if err := store.Clear(ctx, chapterRef); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	history, _ = store.LoadHistory(ctx, chapterRef)
	if len(history) != 0 {
		t.Fatalf("Clear must remove entries, got %+v", history)
	}
}
