package llm

import (
	"context"
	"iter"
	"testing"

	"z-novel-copilot/internal/domain/entity"
)

func collect(seq iter.Seq[entity.Chunk]) []entity.Chunk {
	var out []entity.Chunk
	for c := range seq {
		out = append(out, c)
	}
	return out
}

func TestOneShot_SecondRangeYieldsError(t *testing.T) {
	seq := oneShot(func(yield func(entity.Chunk) bool) {
		if !yield(entity.TextChunk("a")) {
			return
		}
		yield(entity.DoneChunk())
	})

	first := collect(seq)
	if len(first) != 2 || first[1].Type != entity.ChunkDone {
		t.Fatalf("first pass = %+v", first)
	}

	second := collect(seq)
	if len(second) != 1 || second[0].Type != entity.ChunkError {
		t.Fatalf("second pass = %+v, want single error chunk", second)
	}
}

func TestDescribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := describe(ctx, "openai", context.Canceled); got != "request canceled" {
		t.Fatalf("canceled: %q", got)
	}
	if got := describe(context.Background(), "openai", context.DeadlineExceeded); got != "openai: request timed out" {
		t.Fatalf("deadline: %q", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	fake := AdapterFunc(func(context.Context, []Message, Config) iter.Seq[entity.Chunk] {
		return func(yield func(entity.Chunk) bool) { yield(entity.DoneChunk()) }
	})
	r.Register(entity.ProviderOpenAI, fake)

	if _, err := r.Get(entity.ProviderOpenAI); err != nil {
		t.Fatalf("Get(openai) error: %v", err)
	}
	if _, err := r.Get("gemini"); err == nil {
		t.Fatal("Get(gemini) should fail")
	}
}
