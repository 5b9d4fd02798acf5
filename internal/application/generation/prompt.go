package generation

import (
	"strings"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/infrastructure/llm"
)

// PromptInput 组装 messages 所需的材料
type PromptInput struct {
	Action entity.GenerationAction
	// Background 上下文装配得到的参考资料
	Background string
	// Before 锚点之前的正文（续写）
	Before string
	// Selection 待润色/改写的原文
	Selection string
	// Instruction 用户附加要求
	Instruction string
	Options     *entity.GenerationOptions
}

var systemPrompts = map[entity.GenerationAction]string{
	entity.ActionContinue: "你是一位小说写作助手。紧接给定正文续写，保持人称、时态与文风一致。只输出续写的正文，不要重复已有内容，不要解释。",
	entity.ActionPolish:   "你是一位小说编辑。润色给定文本的措辞与节奏，不改变情节与信息量。只输出润色后的文本。",
	entity.ActionRewrite:  "你是一位小说作者。按要求改写给定文本，保留关键情节。只输出改写后的文本。",
	entity.ActionChat:     "你是一位小说创作顾问，结合参考资料回答作者的问题。",
}

var lengthHints = map[entity.TargetLength]string{
	entity.TargetLengthShort:  "篇幅约 100 字。",
	entity.TargetLengthMedium: "篇幅约 300 字。",
	entity.TargetLengthLong:   "篇幅约 800 字。",
}

var lengthTokens = map[entity.TargetLength]int{
	entity.TargetLengthShort:  512,
	entity.TargetLengthMedium: 1024,
	entity.TargetLengthLong:   2048,
}

// BuildMessages 按动作组装 system/user 消息
func BuildMessages(in PromptInput) []llm.Message {
	action := in.Action
	if !action.Valid() {
		action = entity.ActionContinue
	}

	system := systemPrompts[action]
	if in.Options != nil {
		if hint, ok := lengthHints[in.Options.TargetLength]; ok && action != entity.ActionChat {
			system += hint
		}
	}

	msgs := []llm.Message{{Role: entity.RoleSystem, Content: system}}
	if bg := strings.TrimSpace(in.Background); bg != "" {
		msgs = append(msgs, llm.Message{Role: entity.RoleSystem, Content: "参考资料（只读）：\n" + bg})
	}

	var user strings.Builder
	switch action {
	case entity.ActionContinue:
		user.WriteString("已有正文：\n")
		user.WriteString(in.Before)
	case entity.ActionPolish, entity.ActionRewrite:
		user.WriteString("原文：\n")
		user.WriteString(in.Selection)
	}
	if instr := strings.TrimSpace(in.Instruction); instr != "" {
		if user.Len() > 0 {
			user.WriteString("\n\n要求：")
		}
		user.WriteString(instr)
	}
	if user.Len() > 0 {
		msgs = append(msgs, llm.Message{Role: entity.RoleUser, Content: user.String()})
	}
	return msgs
}

// MaxTokensFor 目标长度优先，且不超过后端上限
func MaxTokensFor(opts *entity.GenerationOptions, providerMax, fallback int) int {
	if opts != nil {
		if n, ok := lengthTokens[opts.TargetLength]; ok {
			if providerMax > 0 && providerMax < n {
				return providerMax
			}
			return n
		}
	}
	if providerMax > 0 {
		return providerMax
	}
	return fallback
}
