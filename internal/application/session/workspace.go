package session

import (
	"context"
	"sync"
	"unicode/utf8"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
	apperrors "z-novel-copilot/pkg/errors"
	"z-novel-copilot/pkg/logger"
)

// ChapterDocument 以章节正文作为宿主文档
type ChapterDocument struct {
	chapters  repository.ChapterRepository
	ProjectID string
	ChapterID string
}

// InsertText 实现 Document
func (d *ChapterDocument) InsertText(ctx context.Context, offset int, text string) error {
	chapter, err := d.chapters.InsertText(ctx, d.ChapterID, offset, text)
	if err != nil {
		return err
	}
	if chapter == nil {
		return apperrors.ErrChapterNotFound
	}
	return nil
}

// InlineParams 行内生成请求
type InlineParams struct {
	Cursor      int
	Action      entity.GenerationAction
	ProviderID  string
	Options     *entity.GenerationOptions
	Selection   string
	Instruction string
}

// Workspace 一个编辑界面：行内建议会话 + 对话会话，共享一个路由
type Workspace struct {
	Suggestion *SuggestionSession
	Chat       *ChatSession

	router    *generation.Router
	chapters  repository.ChapterRepository
	assembler service.ContextAssembler
	maxRunes  int

	mu  sync.Mutex
	doc *ChapterDocument
}

// NewWorkspace 创建工作区
func NewWorkspace(
	gen Generator,
	router *generation.Router,
	chapters repository.ChapterRepository,
	assembler service.ContextAssembler,
	transcripts service.TranscriptStore,
	maxRunes int,
) *Workspace {
	return &Workspace{
		Suggestion: NewSuggestionSession(gen, nil),
		Chat:       NewChatSession(gen, transcripts),
		router:     router,
		chapters:   chapters,
		assembler:  assembler,
		maxRunes:   maxRunes,
	}
}

// Run 订阅路由并驱动两个会话，直到 ctx 结束
func (w *Workspace) Run(ctx context.Context) {
	inline := w.router.Subscribe()
	chat := w.router.Subscribe()
	defer inline.Close()
	defer chat.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.Suggestion.Run(ctx, inline)
	}()
	go func() {
		defer wg.Done()
		w.Chat.Run(ctx, chat)
	}()
	wg.Wait()
}

// BindChapter 把行内会话绑定到章节，锚点置于正文末尾
func (w *Workspace) BindChapter(ctx context.Context, chapterID string) (*entity.Chapter, error) {
	chapter, err := w.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, apperrors.ErrChapterNotFound
	}

	doc := &ChapterDocument{chapters: w.chapters, ProjectID: chapter.ProjectID, ChapterID: chapter.ID}
	w.mu.Lock()
	w.doc = doc
	w.mu.Unlock()

	w.Suggestion.BindDocument(doc, utf8.RuneCountInString(chapter.Content))
	return chapter, nil
}

// Document 当前绑定的章节
func (w *Workspace) Document() *ChapterDocument {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc
}

// StartInline 读取章节正文与参考资料，发起行内生成
func (w *Workspace) StartInline(ctx context.Context, p InlineParams) (string, error) {
	doc := w.Document()
	if doc == nil {
		return "", apperrors.ErrDocumentNotBound
	}
	chapter, err := w.chapters.GetByID(ctx, doc.ChapterID)
	if err != nil {
		return "", err
	}
	if chapter == nil {
		return "", apperrors.ErrChapterNotFound
	}

	runes := []rune(chapter.Content)
	cursor := min(max(p.Cursor, 0), len(runes))
	before := string(runes[:cursor])
	if w.maxRunes > 0 && cursor > w.maxRunes {
		before = string(runes[cursor-w.maxRunes : cursor])
	}

	action := p.Action
	if action == "" || action == entity.ActionChat {
		action = entity.ActionContinue
	}
	input := p.Selection
	if action == entity.ActionContinue {
		input = before
	}

	msgs := generation.BuildMessages(generation.PromptInput{
		Action:      action,
		Background:  w.background(ctx, doc.ProjectID, doc.ChapterID),
		Before:      before,
		Selection:   p.Selection,
		Instruction: p.Instruction,
		Options:     p.Options,
	})
	return w.Suggestion.Start(ctx, SuggestionParams{
		Anchor:     cursor,
		Messages:   msgs,
		ProviderID: p.ProviderID,
		Options:    p.Options,
		Action:     action,
		InputText:  input,
		ProjectID:  doc.ProjectID,
		ChapterID:  doc.ChapterID,
	})
}

// BindConversation 切换对话并加载历史
func (w *Workspace) BindConversation(ctx context.Context, ref entity.ConversationRef) error {
	return w.Chat.Bind(ctx, ref)
}

// SendChat 以当前对话所在章节的参考资料发送消息
func (w *Workspace) SendChat(ctx context.Context, p ChatParams) (string, error) {
	if ref := w.Chat.Snapshot().Conversation; ref != nil && p.Background == "" {
		var chapterID string
		if ref.ChapterID != nil {
			chapterID = *ref.ChapterID
		}
		p.Background = w.background(ctx, ref.ProjectID, chapterID)
	}
	return w.Chat.Send(ctx, p)
}

// background 装配失败时降级为无参考资料
func (w *Workspace) background(ctx context.Context, projectID, chapterID string) string {
	if w.assembler == nil || projectID == "" {
		return ""
	}
	text, err := w.assembler.Assemble(ctx, service.ContextRef{ProjectID: projectID, ChapterID: chapterID})
	if err != nil {
		logger.Warn(ctx, "context assembly failed, continuing without background",
			"project_id", projectID,
			"chapter_id", chapterID,
			"error", err.Error(),
		)
		return ""
	}
	return text
}
