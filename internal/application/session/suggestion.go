package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/infrastructure/llm"
	apperrors "z-novel-copilot/pkg/errors"
	"z-novel-copilot/pkg/logger"
	"z-novel-copilot/pkg/metrics"
)

// Generator 会话对协调器的依赖
type Generator interface {
	Start(ctx context.Context, req generation.StartRequest) (string, error)
	Cancel(channel entity.Channel) bool
	// OnCancelAll 注册在 CancelAll 清空注册表之前执行的回调
	OnCancelAll(fn func())
}

// Document 宿主文档，偏移量按字符计
type Document interface {
	InsertText(ctx context.Context, offset int, text string) error
}

// EditOrigin 文档编辑来源
type EditOrigin string

const (
	// EditOriginUser 用户键入/粘贴等外部编辑
	EditOriginUser EditOrigin = "user"
	// EditOriginSuggestion 会话自身的采纳写入
	EditOriginSuggestion EditOrigin = "suggestion"
)

// SuggestionParams 发起一次行内生成
type SuggestionParams struct {
	Anchor     int
	Messages   []llm.Message
	ProviderID string
	Options    *entity.GenerationOptions
	Action     entity.GenerationAction
	InputText  string
	ProjectID  string
	ChapterID  string
}

// SuggestionSession 行内建议会话
// 观察者在持锁状态下被调用，不得阻塞或回调会话
type SuggestionSession struct {
	mu        sync.Mutex
	state     SuggestionState
	gen       Generator
	doc       Document
	last      SuggestionParams
	observers []func(SuggestionState)
}

// NewSuggestionSession 创建会话，doc 可稍后通过 BindDocument 绑定
func NewSuggestionSession(gen Generator, doc Document) *SuggestionSession {
	s := &SuggestionSession{
		state: NewSuggestionState(),
		gen:   gen,
		doc:   doc,
	}
	gen.OnCancelAll(s.abandon)
	return s
}

// OnChange 注册状态变更观察者
func (s *SuggestionSession) OnChange(fn func(SuggestionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// State 当前状态快照
func (s *SuggestionSession) State() SuggestionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// ActiveRequestID 当前关联的请求
func (s *SuggestionSession) ActiveRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveRequestID
}

func (s *SuggestionSession) setLocked(next SuggestionState) {
	s.state = next
	snapshot := next.clone()
	for _, fn := range s.observers {
		fn(snapshot)
	}
}

// BindDocument 切换宿主文档，进行中的生成被取消
func (s *SuggestionSession) BindDocument(doc Document, cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == SuggestionStreaming {
		s.gen.Cancel(entity.ChannelInline)
	}
	s.doc = doc
	s.last = SuggestionParams{}
	s.setLocked(s.state.Reset(cursor))
}

// Start 全新生成：清空候选，分配新 requestId
func (s *SuggestionSession) Start(ctx context.Context, p SuggestionParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startLocked(ctx, s.state, p, false)
}

func (s *SuggestionSession) startLocked(ctx context.Context, from SuggestionState, p SuggestionParams, keep bool) (string, error) {
	requestID := uuid.NewString()
	next, err := from.Begin(p.Anchor, requestID, p.Options, keep)
	if err != nil {
		return "", err
	}

	prev := s.state
	// 先切换 ActiveRequestID，保证首个分片不会被过滤
	s.setLocked(next)
	if _, err := s.gen.Start(ctx, generation.StartRequest{
		RequestID:  requestID,
		Channel:    entity.ChannelInline,
		ProviderID: p.ProviderID,
		Messages:   p.Messages,
		Options:    p.Options,
		Action:     p.Action,
		InputText:  p.InputText,
		ProjectID:  p.ProjectID,
		ChapterID:  p.ChapterID,
	}); err != nil {
		s.setLocked(prev)
		return "", err
	}
	s.last = p
	return requestID, nil
}

// HandleChunk 消费一个路由分片，返回是否改变了状态
func (s *SuggestionSession) HandleChunk(chunk entity.StreamChunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !generation.Accepts(chunk, entity.ChannelInline, s.state.ActiveRequestID) {
		return false
	}
	next, ok := s.state.Apply(chunk)
	if ok {
		s.setLocked(next)
	}
	return ok
}

// Run 消费订阅直到 ctx 结束或订阅关闭
func (s *SuggestionSession) Run(ctx context.Context, sub *generation.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case chunk := <-sub.C():
			s.HandleChunk(chunk)
		}
	}
}

// Accept 在锚点处写入当前文本
func (s *SuggestionSession) Accept(ctx context.Context) (Commit, error) {
	return s.commit(ctx, "accept", SuggestionState.Accept)
}

// PartialAccept 写入到第一个句末标记为止
func (s *SuggestionSession) PartialAccept(ctx context.Context) (Commit, error) {
	return s.commit(ctx, "partial_accept", SuggestionState.PartialAccept)
}

func (s *SuggestionSession) commit(ctx context.Context, action string, step func(SuggestionState) (Commit, SuggestionState, error)) (Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return Commit{}, apperrors.ErrDocumentNotBound
	}
	commit, next, err := step(s.state)
	if err != nil {
		return Commit{}, err
	}
	if err := s.doc.InsertText(ctx, commit.Offset, commit.Text); err != nil {
		logger.Error(ctx, "failed to insert suggestion", err, "offset", commit.Offset)
		return Commit{}, err
	}

	metrics.SuggestionActionsTotal.WithLabelValues(action).Inc()
	s.setLocked(next)
	return commit, nil
}

// Reject 丢弃建议，cursor 为新的锚点
func (s *SuggestionSession) Reject(cursor int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.Reject(cursor)
	if err != nil {
		return err
	}
	metrics.SuggestionActionsTotal.WithLabelValues("reject").Inc()
	s.setLocked(next)
	return nil
}

// Regenerate 归档当前文本，从同一锚点以相同 messages 重新生成；opts 为空时沿用上次参数
func (s *SuggestionSession) Regenerate(ctx context.Context, opts *entity.GenerationOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	archived, err := s.state.PrepareRegenerate()
	if err != nil {
		return "", err
	}
	if len(s.last.Messages) == 0 {
		return "", invalidTransition("regenerate", SuggestionIdle)
	}

	p := s.last
	p.Anchor = archived.AnchorPosition
	if opts != nil {
		p.Options = opts
	}
	requestID, err := s.startLocked(ctx, archived, p, true)
	if err != nil {
		return "", err
	}
	metrics.SuggestionActionsTotal.WithLabelValues("regenerate").Inc()
	return requestID, nil
}

// CycleNext 切换到下一个候选
func (s *SuggestionSession) CycleNext() error {
	return s.cycle(SuggestionState.CycleNext)
}

// CyclePrevious 切换到上一个候选
func (s *SuggestionSession) CyclePrevious() error {
	return s.cycle(SuggestionState.CyclePrevious)
}

func (s *SuggestionSession) cycle(step func(SuggestionState) (SuggestionState, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := step(s.state)
	if err != nil {
		return err
	}
	metrics.SuggestionActionsTotal.WithLabelValues("cycle").Inc()
	s.setLocked(next)
	return nil
}

// Cancel 中止进行中的生成；有部分文本时保留为 completed
func (s *SuggestionSession) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != SuggestionStreaming {
		return false
	}
	s.gen.Cancel(entity.ChannelInline)
	s.setLocked(s.state.Interrupt())
	return true
}

// abandon 协调器静默中止全部请求时释放 ActiveRequestID，缓冲中的旧分片随之被过滤
func (s *SuggestionSession) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == SuggestionStreaming {
		s.setLocked(s.state.Interrupt())
	}
}

// DocumentEdited 处理文档编辑事件；会话自身的写入被忽略
func (s *SuggestionSession) DocumentEdited(origin EditOrigin, cursor int) {
	if origin == EditOriginSuggestion {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == SuggestionStreaming {
		s.gen.Cancel(entity.ChannelInline)
	}
	s.setLocked(s.state.Reset(cursor))
}
