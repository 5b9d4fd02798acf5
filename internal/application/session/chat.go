package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/service"
	"z-novel-copilot/internal/infrastructure/llm"
	apperrors "z-novel-copilot/pkg/errors"
)

// ChatStatus 对话会话状态
type ChatStatus string

const (
	ChatIdle      ChatStatus = "idle"
	ChatStreaming ChatStatus = "streaming"
)

const (
	errorPrefix     = "[Error] "
	cancelledSuffix = " [cancelled]"
)

// ChatSnapshot 对话会话的只读视图
type ChatSnapshot struct {
	Status          ChatStatus                    `json:"status"`
	Conversation    *entity.ConversationRef       `json:"conversation,omitempty"`
	Transcript      []*entity.ConversationMessage `json:"transcript"`
	Streaming       string                        `json:"streaming,omitempty"`
	ActiveRequestID string                        `json:"active_request_id,omitempty"`
}

// ChatParams 发送一条用户消息
type ChatParams struct {
	Content    string
	ProviderID string
	Options    *entity.GenerationOptions
	// Background 上下文装配得到的参考资料
	Background string
}

// ChatSession 对话会话：记录、滚动缓冲与持久化
type ChatSession struct {
	mu         sync.Mutex
	gen        Generator
	store      service.TranscriptStore
	journal    *journal
	ref        *entity.ConversationRef
	transcript []*entity.ConversationMessage
	scratch    strings.Builder
	status     ChatStatus
	activeID   string
	pending    string
	observers  []func(ChatSnapshot)
}

// NewChatSession 创建对话会话，并在协调器 CancelAll 时释放进行中的回复
func NewChatSession(gen Generator, store service.TranscriptStore) *ChatSession {
	s := &ChatSession{gen: gen, store: store, journal: newJournal(store), status: ChatIdle}
	gen.OnCancelAll(s.abandon)
	return s
}

// OnChange 注册观察者，持锁调用
func (s *ChatSession) OnChange(fn func(ChatSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot 当前视图
func (s *ChatSession) Snapshot() ChatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ChatSession) snapshotLocked() ChatSnapshot {
	transcript := make([]*entity.ConversationMessage, 0, len(s.transcript))
	for _, m := range s.transcript {
		cp := *m
		transcript = append(transcript, &cp)
	}
	var ref *entity.ConversationRef
	if s.ref != nil {
		r := *s.ref
		ref = &r
	}
	return ChatSnapshot{
		Status:          s.status,
		Conversation:    ref,
		Transcript:      transcript,
		Streaming:       s.scratch.String(),
		ActiveRequestID: s.activeID,
	}
}

func (s *ChatSession) notifyLocked() {
	if len(s.observers) == 0 {
		return
	}
	snapshot := s.snapshotLocked()
	for _, fn := range s.observers {
		fn(snapshot)
	}
}

// Bind 切换对话并加载历史；进行中的回复被丢弃
func (s *ChatSession) Bind(ctx context.Context, ref entity.ConversationRef) error {
	if err := s.journal.flush(ctx); err != nil {
		return err
	}
	history, err := s.store.LoadHistory(ctx, ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == ChatStreaming {
		s.gen.Cancel(entity.ChannelChat)
	}
	s.resetLocked()
	s.ref = &ref
	s.transcript = history
	s.notifyLocked()
	return nil
}

// Load 从存储重新加载当前对话的记录
func (s *ChatSession) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.ref == nil {
		s.mu.Unlock()
		return apperrors.New(apperrors.CodeInvalidParam, "no conversation bound")
	}
	ref := *s.ref
	s.mu.Unlock()

	if err := s.journal.flush(ctx); err != nil {
		return err
	}
	history, err := s.store.LoadHistory(ctx, ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ref == nil || s.ref.Key() != ref.Key() || s.status == ChatStreaming {
		return nil
	}
	s.transcript = history
	s.notifyLocked()
	return nil
}

// Transcript 当前记录的副本
func (s *ChatSession) Transcript() []*entity.ConversationMessage {
	return s.Snapshot().Transcript
}

func (s *ChatSession) resetLocked() {
	s.status = ChatIdle
	s.activeID = ""
	s.pending = ""
	s.scratch.Reset()
}

// Send 追加用户消息并发起生成；streaming 期间拒绝
func (s *ChatSession) Send(ctx context.Context, p ChatParams) (string, error) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return "", apperrors.New(apperrors.CodeInvalidParam, "message content is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == ChatStreaming {
		return "", apperrors.ErrSessionBusy
	}
	if s.ref == nil {
		return "", apperrors.New(apperrors.CodeInvalidParam, "no conversation bound")
	}

	msgs := generation.BuildMessages(generation.PromptInput{
		Action:     entity.ActionChat,
		Background: p.Background,
		Options:    p.Options,
	})
	msgs = append(msgs, historyMessages(s.transcript)...)
	msgs = append(msgs, llm.Message{Role: entity.RoleUser, Content: content})

	requestID := uuid.NewString()
	s.transcript = append(s.transcript, &entity.ConversationMessage{Role: entity.RoleUser, Content: content})
	s.status = ChatStreaming
	s.activeID = requestID
	s.pending = content
	s.scratch.Reset()

	var chapterID string
	if s.ref.ChapterID != nil {
		chapterID = *s.ref.ChapterID
	}
	if _, err := s.gen.Start(ctx, generation.StartRequest{
		RequestID:      requestID,
		Channel:        entity.ChannelChat,
		ProviderID:     p.ProviderID,
		Messages:       msgs,
		Options:        p.Options,
		Action:         entity.ActionChat,
		InputText:      content,
		ProjectID:      s.ref.ProjectID,
		ChapterID:      chapterID,
		ConversationID: s.ref.Key(),
	}); err != nil {
		s.transcript = s.transcript[:len(s.transcript)-1]
		s.resetLocked()
		return "", err
	}
	s.notifyLocked()
	return requestID, nil
}

// historyMessages 错误条目不参与上下文
func historyMessages(transcript []*entity.ConversationMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(transcript))
	for _, m := range transcript {
		if m.Failed || m.Role == entity.RoleSystem {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// HandleChunk 消费一个路由分片
func (s *ChatSession) HandleChunk(ctx context.Context, chunk entity.StreamChunk) bool {
	s.mu.Lock()
	if !generation.Accepts(chunk, entity.ChannelChat, s.activeID) {
		s.mu.Unlock()
		return false
	}

	var persist []service.TranscriptEntry
	switch chunk.Type {
	case entity.ChunkText:
		s.scratch.WriteString(chunk.Content)
	case entity.ChunkDone:
		persist = append(persist, service.TranscriptEntry{Role: entity.RoleUser, Content: s.pending})
		if reply := s.scratch.String(); reply != "" {
			s.transcript = append(s.transcript, &entity.ConversationMessage{Role: entity.RoleAssistant, Content: reply})
			persist = append(persist, service.TranscriptEntry{Role: entity.RoleAssistant, Content: reply})
		}
		s.resetLocked()
	case entity.ChunkError:
		s.transcript = append(s.transcript, &entity.ConversationMessage{
			Role:    entity.RoleAssistant,
			Content: errorPrefix + chunk.Message,
			Failed:  true,
		})
		s.resetLocked()
	default:
		s.mu.Unlock()
		return false
	}
	s.notifyLocked()
	s.journal.enqueue(ctx, *s.ref, persist)
	s.mu.Unlock()
	return true
}

// Cancel 中止回复；已有部分文本时以中断条目保留并持久化
func (s *ChatSession) Cancel(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != ChatStreaming {
		return false
	}
	s.gen.Cancel(entity.ChannelChat)
	s.interruptLocked(ctx)
	return true
}

// abandon 协调器已静默中止全部请求：按中断处理，之后到达的分片不再匹配
func (s *ChatSession) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != ChatStreaming {
		return
	}
	s.interruptLocked(context.Background())
}

func (s *ChatSession) interruptLocked(ctx context.Context) {
	var persist []service.TranscriptEntry
	if partial := s.scratch.String(); partial != "" {
		content := partial + cancelledSuffix
		s.transcript = append(s.transcript, &entity.ConversationMessage{
			Role:        entity.RoleAssistant,
			Content:     content,
			Interrupted: true,
		})
		persist = []service.TranscriptEntry{
			{Role: entity.RoleUser, Content: s.pending},
			{Role: entity.RoleAssistant, Content: content, Interrupted: true},
		}
	}
	s.resetLocked()
	s.notifyLocked()
	s.journal.enqueue(ctx, *s.ref, persist)
}

// Clear 清空当前对话的记录
func (s *ChatSession) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ref == nil {
		return apperrors.New(apperrors.CodeInvalidParam, "no conversation bound")
	}
	if s.status == ChatStreaming {
		s.gen.Cancel(entity.ChannelChat)
	}
	if err := s.journal.flush(ctx); err != nil {
		return err
	}
	if err := s.store.Clear(ctx, *s.ref); err != nil {
		return err
	}
	s.resetLocked()
	s.transcript = nil
	s.notifyLocked()
	return nil
}

// Run 消费订阅直到 ctx 结束或订阅关闭
func (s *ChatSession) Run(ctx context.Context, sub *generation.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case chunk := <-sub.C():
			s.HandleChunk(ctx, chunk)
		}
	}
}

// Flush 等待已提交的对话记录写入存储
func (s *ChatSession) Flush(ctx context.Context) error {
	return s.journal.flush(ctx)
}
