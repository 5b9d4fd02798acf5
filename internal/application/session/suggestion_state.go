// Package session 持有 UI 面（行内建议、对话）的状态机，消费 Router 分片并回调协调器
package session

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/domain/entity"
	apperrors "z-novel-copilot/pkg/errors"
)

// SuggestionStatus 行内建议状态
type SuggestionStatus string

const (
	SuggestionIdle      SuggestionStatus = "idle"
	SuggestionStreaming SuggestionStatus = "streaming"
	SuggestionCompleted SuggestionStatus = "completed"
	SuggestionError     SuggestionStatus = "error"
)

// LiveSlot SelectedAlternativeIndex 指向正在生成/刚生成的文本
const LiveSlot = -1

// sentenceTerminators 部分采纳的句末标记
const sentenceTerminators = "。！？.!?\n"

// Alternative 归档的候选文本及其生成参数
type Alternative struct {
	Text    string                    `json:"text"`
	Options *entity.GenerationOptions `json:"options,omitempty"`
}

// SuggestionState 行内建议的纯状态，所有迁移返回新值
type SuggestionState struct {
	Status         SuggestionStatus `json:"status"`
	AnchorPosition int              `json:"anchor_position"`
	LiveText       string           `json:"live_text"`
	// LiveArchived LiveText 已作为最后一个候选归档
	LiveArchived             bool                      `json:"-"`
	Alternatives             []Alternative             `json:"alternatives"`
	SelectedAlternativeIndex int                       `json:"selected_alternative_index"`
	ErrorMessage             string                    `json:"error_message,omitempty"`
	ActiveRequestID          string                    `json:"active_request_id,omitempty"`
	Options                  *entity.GenerationOptions `json:"options,omitempty"`
}

// Commit 需要写入宿主文档的文本
type Commit struct {
	Offset int
	Text   string
}

// NewSuggestionState 初始空闲状态
func NewSuggestionState() SuggestionState {
	return SuggestionState{Status: SuggestionIdle, SelectedAlternativeIndex: LiveSlot}
}

func invalidTransition(op string, status SuggestionStatus) error {
	return apperrors.New(apperrors.CodeInvalidTransition, fmt.Sprintf("cannot %s while %s", op, status))
}

func (s SuggestionState) clone() SuggestionState {
	if s.Alternatives != nil {
		alts := make([]Alternative, len(s.Alternatives))
		copy(alts, s.Alternatives)
		s.Alternatives = alts
	}
	return s
}

// ActiveText 当前展示的文本：选中的候选或 LiveText
func (s SuggestionState) ActiveText() string {
	if s.SelectedAlternativeIndex >= 0 && s.SelectedAlternativeIndex < len(s.Alternatives) {
		return s.Alternatives[s.SelectedAlternativeIndex].Text
	}
	return s.LiveText
}

// Begin 进入 streaming；keepAlternatives 为 false 时清空候选（全新开始）
func (s SuggestionState) Begin(anchor int, requestID string, opts *entity.GenerationOptions, keepAlternatives bool) (SuggestionState, error) {
	if s.Status == SuggestionStreaming {
		return s, apperrors.ErrSessionBusy
	}

	next := s.clone()
	if !keepAlternatives {
		next.Alternatives = nil
	}
	next.Status = SuggestionStreaming
	next.AnchorPosition = anchor
	next.LiveText = ""
	next.LiveArchived = false
	next.SelectedAlternativeIndex = LiveSlot
	next.ErrorMessage = ""
	next.ActiveRequestID = requestID
	next.Options = opts
	return next, nil
}

// Apply 处理一个分片；未通过过滤规则时原样返回 false
func (s SuggestionState) Apply(chunk entity.StreamChunk) (SuggestionState, bool) {
	if s.Status != SuggestionStreaming || !generation.Accepts(chunk, entity.ChannelInline, s.ActiveRequestID) {
		return s, false
	}

	next := s.clone()
	switch chunk.Type {
	case entity.ChunkText:
		next.LiveText += chunk.Content
	case entity.ChunkDone:
		next.Status = SuggestionCompleted
		next.ActiveRequestID = ""
	case entity.ChunkError:
		next.Status = SuggestionError
		next.ErrorMessage = chunk.Message
		next.ActiveRequestID = ""
	default:
		return s, false
	}
	return next, true
}

// Reset 无条件回到空闲，cursor 成为新的锚点
func (s SuggestionState) Reset(cursor int) SuggestionState {
	next := NewSuggestionState()
	next.AnchorPosition = cursor
	next.Options = s.Options
	return next
}

// Reject completed/error → idle；idle 时仅更新锚点
func (s SuggestionState) Reject(cursor int) (SuggestionState, error) {
	if s.Status == SuggestionStreaming {
		return s, invalidTransition("reject", s.Status)
	}
	return s.Reset(cursor), nil
}

// Interrupt 取消 streaming：有部分文本时 completed，否则 idle
func (s SuggestionState) Interrupt() SuggestionState {
	if s.Status != SuggestionStreaming {
		return s
	}
	if s.LiveText == "" {
		return s.Reset(s.AnchorPosition)
	}
	next := s.clone()
	next.Status = SuggestionCompleted
	next.ActiveRequestID = ""
	return next
}

// Accept completed → idle，返回写入锚点处的文本
func (s SuggestionState) Accept() (Commit, SuggestionState, error) {
	if s.Status != SuggestionCompleted {
		return Commit{}, s, invalidTransition("accept", s.Status)
	}
	text := s.ActiveText()
	if text == "" {
		return Commit{}, s, apperrors.ErrNothingToAccept
	}

	commit := Commit{Offset: s.AnchorPosition, Text: text}
	return commit, s.Reset(s.AnchorPosition + utf8.RuneCountInString(text)), nil
}

// PartialAccept 提交到第一个句末标记（含）为止，余下部分成为新的 LiveText
func (s SuggestionState) PartialAccept() (Commit, SuggestionState, error) {
	if s.Status != SuggestionCompleted {
		return Commit{}, s, invalidTransition("partially accept", s.Status)
	}
	text := s.ActiveText()
	if text == "" {
		return Commit{}, s, apperrors.ErrNothingToAccept
	}

	idx := strings.IndexAny(text, sentenceTerminators)
	if idx < 0 {
		return s.Accept()
	}
	_, size := utf8.DecodeRuneInString(text[idx:])
	prefix, remainder := text[:idx+size], text[idx+size:]

	commit := Commit{Offset: s.AnchorPosition, Text: prefix}
	anchor := s.AnchorPosition + utf8.RuneCountInString(prefix)
	if remainder == "" {
		return commit, s.Reset(anchor), nil
	}

	next := s.clone()
	next.AnchorPosition = anchor
	next.LiveText = remainder
	next.LiveArchived = false
	next.SelectedAlternativeIndex = LiveSlot
	return commit, next, nil
}

// archiveLive 把 LiveText 追加到候选末尾，每段 LiveText 只归档一次
func (s SuggestionState) archiveLive() SuggestionState {
	if s.LiveText == "" || s.LiveArchived {
		return s
	}
	next := s.clone()
	next.Alternatives = append(next.Alternatives, Alternative{Text: s.LiveText, Options: s.Options})
	next.LiveArchived = true
	return next
}

// PrepareRegenerate completed/error 时归档当前 LiveText
func (s SuggestionState) PrepareRegenerate() (SuggestionState, error) {
	if s.Status != SuggestionCompleted && s.Status != SuggestionError {
		return s, invalidTransition("regenerate", s.Status)
	}
	return s.archiveLive(), nil
}

// cycleLen 参与轮换的候选数；已归档的 LiveText 由 LiveSlot 代表
func (s SuggestionState) cycleLen() int {
	n := len(s.Alternatives)
	if s.LiveArchived {
		n--
	}
	return n
}

// CycleNext 在 {-1, 0..n-1} 上循环前进
func (s SuggestionState) CycleNext() (SuggestionState, error) {
	return s.cycle(1)
}

// CyclePrevious 在 {-1, 0..n-1} 上循环后退
func (s SuggestionState) CyclePrevious() (SuggestionState, error) {
	return s.cycle(-1)
}

func (s SuggestionState) cycle(step int) (SuggestionState, error) {
	if s.Status != SuggestionCompleted {
		return s, invalidTransition("cycle alternatives", s.Status)
	}
	n := s.cycleLen()
	if n <= 0 {
		return s, nil
	}

	next := s
	if s.SelectedAlternativeIndex == LiveSlot {
		next = s.archiveLive()
	} else {
		next = s.clone()
	}

	// 槽位 0 代表 LiveSlot，槽位 i+1 代表候选 i
	slot := (next.SelectedAlternativeIndex + 1 + step + n + 1) % (n + 1)
	next.SelectedAlternativeIndex = slot - 1
	return next, nil
}
