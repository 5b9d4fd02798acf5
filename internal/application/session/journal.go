package session

import (
	"context"
	"sync"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/service"
	"z-novel-copilot/pkg/logger"
	"z-novel-copilot/pkg/metrics"
)

type journalBatch struct {
	ctx     context.Context
	ref     entity.ConversationRef
	entries []service.TranscriptEntry
}

// journal 在后台按提交顺序写入对话记录，分片消费方不等待存储
type journal struct {
	store service.TranscriptStore

	mu      sync.Mutex
	queue   []journalBatch
	running bool
	// idle 在最后一批写完时关闭
	idle chan struct{}
}

func newJournal(store service.TranscriptStore) *journal {
	return &journal{store: store}
}

// enqueue 追加一批记录，同一批内任一条失败则放弃其余条目
func (j *journal) enqueue(ctx context.Context, ref entity.ConversationRef, entries []service.TranscriptEntry) {
	if len(entries) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.queue = append(j.queue, journalBatch{ctx: context.WithoutCancel(ctx), ref: ref, entries: entries})
	if !j.running {
		j.idle = make(chan struct{})
		j.running = true
		go j.drain()
	}
}

func (j *journal) drain() {
	for {
		j.mu.Lock()
		if len(j.queue) == 0 {
			j.running = false
			close(j.idle)
			j.mu.Unlock()
			return
		}
		batch := j.queue[0]
		j.queue = j.queue[1:]
		j.mu.Unlock()

		j.write(batch)
	}
}

func (j *journal) write(b journalBatch) {
	for _, e := range b.entries {
		if _, err := j.store.Append(b.ctx, b.ref, e); err != nil {
			metrics.GenerationSideEffectFailures.WithLabelValues("transcript").Inc()
			logger.Error(b.ctx, "failed to persist transcript entry", err,
				"conversation", b.ref.Key(),
				"role", string(e.Role),
			)
			return
		}
	}
}

// flush 等待已提交的记录全部写完
func (j *journal) flush(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	idle := j.idle
	j.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
