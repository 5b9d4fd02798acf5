package generation

import (
	"strings"
	"testing"

	"z-novel-copilot/internal/domain/entity"
)

func TestBuildMessages_Continue(t *testing.T) {
	msgs := BuildMessages(PromptInput{
		Action:     entity.ActionContinue,
		Background: "作品：夜航",
		Before:     "雾升起来了。",
		Options:    &entity.GenerationOptions{TargetLength: entity.TargetLengthShort},
	})
	if len(msgs) != 3 {
		t.Fatalf("messages = %d", len(msgs))
	}
	if msgs[0].Role != entity.RoleSystem || !strings.HasSuffix(msgs[0].Content, "篇幅约 100 字。") {
		t.Errorf("system = %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[1].Content, "作品：夜航") {
		t.Errorf("background = %q", msgs[1].Content)
	}
	if msgs[2].Role != entity.RoleUser || msgs[2].Content != "已有正文：\n雾升起来了。" {
		t.Errorf("user = %q", msgs[2].Content)
	}
}

func TestBuildMessages_ChatOnlySystem(t *testing.T) {
	msgs := BuildMessages(PromptInput{
		Action:  entity.ActionChat,
		Options: &entity.GenerationOptions{TargetLength: entity.TargetLengthLong},
	})
	if len(msgs) != 1 || strings.Contains(msgs[0].Content, "篇幅") {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestBuildMessages_RewriteWithInstruction(t *testing.T) {
	msgs := BuildMessages(PromptInput{Action: entity.ActionRewrite, Selection: "他走了。", Instruction: "改成第一人称"})
	last := msgs[len(msgs)-1]
	if last.Content != "原文：\n他走了。\n\n要求：改成第一人称" {
		t.Fatalf("user = %q", last.Content)
	}
}

func TestMaxTokensFor(t *testing.T) {
	short := &entity.GenerationOptions{TargetLength: entity.TargetLengthShort}
	long := &entity.GenerationOptions{TargetLength: entity.TargetLengthLong}

	cases := []struct {
		name        string
		opts        *entity.GenerationOptions
		providerMax int
		want        int
	}{
		{"target length", short, 0, 512},
		{"capped by provider", long, 1000, 1000},
		{"provider max", nil, 3000, 3000},
		{"fallback", nil, 0, 4096},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaxTokensFor(tc.opts, tc.providerMax, 4096); got != tc.want {
				t.Fatalf("MaxTokensFor() = %d, want %d", got, tc.want)
			}
		})
	}
}
