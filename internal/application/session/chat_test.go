package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/service"
	apperrors "z-novel-copilot/pkg/errors"
)

type memoryTranscripts struct {
	mu        sync.Mutex
	entries   map[string][]*entity.ConversationMessage
	appendErr error
	seq       int
	// gate 非空时 Append 等待其关闭
	gate chan struct{}
}

func newMemoryTranscripts() *memoryTranscripts {
	return &memoryTranscripts{entries: make(map[string][]*entity.ConversationMessage)}
}

func (m *memoryTranscripts) Append(_ context.Context, ref entity.ConversationRef, e service.TranscriptEntry) (string, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return "", m.appendErr
	}
	m.seq++
	id := strings.Repeat("m", m.seq)
	m.entries[ref.Key()] = append(m.entries[ref.Key()], &entity.ConversationMessage{
		ID:          id,
		Role:        e.Role,
		Content:     e.Content,
		Interrupted: e.Interrupted,
	})
	return id, nil
}

func (m *memoryTranscripts) LoadHistory(_ context.Context, ref entity.ConversationRef) ([]*entity.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.ConversationMessage(nil), m.entries[ref.Key()]...), nil
}

func (m *memoryTranscripts) Clear(_ context.Context, ref entity.ConversationRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, ref.Key())
	return nil
}

func (m *memoryTranscripts) stored(ref entity.ConversationRef) []*entity.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.ConversationMessage(nil), m.entries[ref.Key()]...)
}

var projectRef = entity.ConversationRef{ProjectID: "p1"}

func chatChunk(id string, typ entity.ChunkType, payload string) entity.StreamChunk {
	c := entity.StreamChunk{RequestID: id, Channel: entity.ChannelChat, Type: typ}
	if typ == entity.ChunkError {
		c.Message = payload
	} else {
		c.Content = payload
	}
	return c
}

func boundChat(t *testing.T, gen Generator, store service.TranscriptStore) *ChatSession {
	t.Helper()
	s := NewChatSession(gen, store)
	if err := s.Bind(context.Background(), projectRef); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return s
}

func TestChatSession_DonePersistsPair(t *testing.T) {
	gen := &fakeGenerator{}
	store := newMemoryTranscripts()
	s := boundChat(t, gen, store)
	ctx := context.Background()

	id, err := s.Send(ctx, ChatParams{Content: "主角叫什么？", ProviderID: "p1"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	req := gen.last()
	if req.Channel != entity.ChannelChat || req.ConversationID != "p1" || req.InputText != "主角叫什么？" {
		t.Fatalf("unexpected start request %+v", req)
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != entity.RoleUser || last.Content != "主角叫什么？" {
		t.Fatalf("last message must be the user turn, got %+v", last)
	}

	s.HandleChunk(ctx, chatChunk(id, entity.ChunkText, "叫"))
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkText, "林舟"))
	if snap := s.Snapshot(); snap.Streaming != "叫林舟" || snap.Status != ChatStreaming {
		t.Fatalf("unexpected streaming snapshot %+v", snap)
	}
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkDone, ""))

	got := s.Transcript()
	if len(got) != 2 || got[1].Role != entity.RoleAssistant || got[1].Content != "叫林舟" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	stored := store.stored(projectRef)
	if len(stored) != 2 || stored[0].Role != entity.RoleUser || stored[1].Content != "叫林舟" {
		t.Fatalf("unexpected persisted entries %+v", stored)
	}
	if s.Snapshot().Status != ChatIdle {
		t.Fatal("session must return to idle")
	}
}

func TestChatSession_ErrorPersistsNothing(t *testing.T) {
	store := newMemoryTranscripts()
	s := boundChat(t, &fakeGenerator{}, store)
	ctx := context.Background()

	id, err := s.Send(ctx, ChatParams{Content: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkError, "rate limited"))

	got := s.Transcript()
	if len(got) != 2 || got[1].Content != "[Error] rate limited" || !got[1].Failed {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if stored := store.stored(projectRef); len(stored) != 0 {
		t.Fatalf("error must persist nothing, got %+v", stored)
	}

	// 失败条目不进入下一轮上下文
	gen := &fakeGenerator{}
	s.gen = gen
	if _, err := s.Send(ctx, ChatParams{Content: "again"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for _, m := range gen.last().Messages {
		if strings.HasPrefix(m.Content, "[Error]") {
			t.Fatal("failed entries must not be sent to the backend")
		}
	}
}

func TestChatSession_CancelPersistsInterruptedReply(t *testing.T) {
	gen := &fakeGenerator{}
	store := newMemoryTranscripts()
	s := boundChat(t, gen, store)
	ctx := context.Background()

	id, _ := s.Send(ctx, ChatParams{Content: "写首诗"})
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkText, "床前"))
	if !s.Cancel(ctx) {
		t.Fatal("Cancel should report true while streaming")
	}
	if len(gen.canceled) != 1 || gen.canceled[0] != entity.ChannelChat {
		t.Fatalf("expected chat cancel, got %v", gen.canceled)
	}

	got := s.Transcript()
	if len(got) != 2 || got[1].Content != "床前 [cancelled]" || !got[1].Interrupted {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	stored := store.stored(projectRef)
	if len(stored) != 2 || !stored[1].Interrupted {
		t.Fatalf("unexpected persisted entries %+v", stored)
	}
	if s.HandleChunk(ctx, chatChunk(id, entity.ChunkDone, "")) {
		t.Fatal("synthetic done after cancel must be ignored")
	}
}

func TestChatSession_SendWhileStreaming(t *testing.T) {
	s := boundChat(t, &fakeGenerator{}, newMemoryTranscripts())
	ctx := context.Background()
	if _, err := s.Send(ctx, ChatParams{Content: "one"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := s.Send(ctx, ChatParams{Content: "two"}); !errors.Is(err, apperrors.ErrSessionBusy) {
		t.Fatalf("expected session busy, got %v", err)
	}
	if _, err := NewChatSession(&fakeGenerator{}, newMemoryTranscripts()).Send(ctx, ChatParams{Content: "x"}); !hasCode(err, apperrors.CodeInvalidParam) {
		t.Fatalf("expected invalid param without a conversation, got %v", err)
	}
}

func TestChatSession_PersistFailureIsSwallowed(t *testing.T) {
	store := newMemoryTranscripts()
	s := boundChat(t, &fakeGenerator{}, store)
	store.appendErr = errors.New("db down")
	ctx := context.Background()

	id, _ := s.Send(ctx, ChatParams{Content: "hi"})
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkText, "hello"))
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkDone, ""))

	if got := s.Transcript(); len(got) != 2 || got[1].Content != "hello" {
		t.Fatalf("in-memory transcript must be kept, got %+v", got)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestChatSession_SlowStoreDoesNotBlockChunks(t *testing.T) {
	store := newMemoryTranscripts()
	s := boundChat(t, &fakeGenerator{}, store)
	gate := make(chan struct{})
	store.mu.Lock()
	store.gate = gate
	store.mu.Unlock()
	ctx := context.Background()

	first, _ := s.Send(ctx, ChatParams{Content: "一"})
	s.HandleChunk(ctx, chatChunk(first, entity.ChunkText, "甲"))

	handled := make(chan struct{})
	go func() {
		s.HandleChunk(ctx, chatChunk(first, entity.ChunkDone, ""))
		second, _ := s.Send(ctx, ChatParams{Content: "二"})
		s.HandleChunk(ctx, chatChunk(second, entity.ChunkText, "乙"))
		s.HandleChunk(ctx, chatChunk(second, entity.ChunkDone, ""))
		close(handled)
	}()
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("chunk handling waited on the store")
	}
	if got := s.Transcript(); len(got) != 4 {
		t.Fatalf("in-memory transcript %+v", got)
	}

	close(gate)
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	var contents []string
	for _, m := range store.stored(projectRef) {
		contents = append(contents, m.Content)
	}
	if strings.Join(contents, ",") != "一,甲,二,乙" {
		t.Fatalf("entries must be written in order, got %v", contents)
	}
}

func TestChatSession_ClearWaitsForPendingWrites(t *testing.T) {
	store := newMemoryTranscripts()
	s := boundChat(t, &fakeGenerator{}, store)
	gate := make(chan struct{})
	store.mu.Lock()
	store.gate = gate
	store.mu.Unlock()
	ctx := context.Background()

	id, _ := s.Send(ctx, ChatParams{Content: "hi"})
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkText, "hello"))
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkDone, ""))

	time.AfterFunc(20*time.Millisecond, func() { close(gate) })
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if stored := store.stored(projectRef); len(stored) != 0 {
		t.Fatalf("writes queued before Clear must not survive it, got %+v", stored)
	}
}

func TestChatSession_CancelAllInterruptsReply(t *testing.T) {
	gen := &fakeGenerator{}
	store := newMemoryTranscripts()
	s := boundChat(t, gen, store)
	ctx := context.Background()

	id, _ := s.Send(ctx, ChatParams{Content: "写首诗"})
	s.HandleChunk(ctx, chatChunk(id, entity.ChunkText, "床前"))

	gen.cancelAll()
	snap := s.Snapshot()
	if snap.Status != ChatIdle || snap.ActiveRequestID != "" {
		t.Fatalf("cancelAll must release the session, got %+v", snap)
	}
	if len(gen.canceled) != 0 {
		t.Fatal("cancelAll must not issue a per-channel cancel")
	}
	if s.HandleChunk(ctx, chatChunk(id, entity.ChunkText, "明月光")) {
		t.Fatal("buffered chunk of the cancelled reply must be ignored")
	}
	if got := s.Transcript(); len(got) != 2 || got[1].Content != "床前 [cancelled]" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if _, err := s.Send(ctx, ChatParams{Content: "再来"}); err != nil {
		t.Fatalf("Send after cancelAll: %v", err)
	}
}

func TestChatSession_BindLoadsAndClear(t *testing.T) {
	store := newMemoryTranscripts()
	ctx := context.Background()
	store.Append(ctx, projectRef, service.TranscriptEntry{Role: entity.RoleUser, Content: "earlier"})

	s := boundChat(t, &fakeGenerator{}, store)
	if got := s.Transcript(); len(got) != 1 || got[0].Content != "earlier" {
		t.Fatalf("Bind must load history, got %+v", got)
	}

	store.Append(ctx, projectRef, service.TranscriptEntry{Role: entity.RoleAssistant, Content: "later"})
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Transcript(); len(got) != 2 {
		t.Fatalf("Load must refresh history, got %+v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(s.Transcript()) != 0 || len(store.stored(projectRef)) != 0 {
		t.Fatal("Clear must empty memory and storage")
	}
}

func TestChatSession_EndToEndError(t *testing.T) {
	h := newHarness(t)
	store := newMemoryTranscripts()
	s := boundChat(t, h.coord, store)
	h.run(s.Run)

	if _, err := s.Send(context.Background(), ChatParams{Content: "hi", ProviderID: "p1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	feed := h.adapter.next(t)
	feed <- entity.ErrorChunk("rate limited")

	waitFor(t, "idle", func() bool { return s.Snapshot().Status == ChatIdle })
	got := s.Transcript()
	if len(got) != 2 || got[1].Content != "[Error] rate limited" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if stored := store.stored(projectRef); len(stored) != 0 {
		t.Fatalf("error must persist nothing, got %+v", stored)
	}
}
