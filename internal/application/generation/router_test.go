package generation

import (
	"testing"
	"time"

	"z-novel-copilot/internal/domain/entity"
)

func next(t *testing.T, sub *Subscription) entity.StreamChunk {
	t.Helper()
	select {
	case c := <-sub.C():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chunk")
		return entity.StreamChunk{}
	}
}

func expectSilence(t *testing.T, sub *Subscription, d time.Duration) {
	t.Helper()
	select {
	case c := <-sub.C():
		t.Fatalf("unexpected chunk: %+v", c)
	case <-time.After(d):
	}
}

func TestRouter_PreservesOrderWithBackpressure(t *testing.T) {
	r := NewRouter(1)
	sub := r.Subscribe()
	defer sub.Close()

	go func() {
		for _, s := range []string{"a", "b", "c", "d"} {
			r.Publish(entity.StreamChunk{RequestID: "r1", Channel: entity.ChannelInline, Type: entity.ChunkText, Content: s})
		}
	}()

	var got string
	for i := 0; i < 4; i++ {
		got += next(t, sub).Content
	}
	if got != "abcd" {
		t.Fatalf("got %q, want abcd", got)
	}
}

func TestRouter_FanOutToAllSubscribers(t *testing.T) {
	r := NewRouter(4)
	a, b := r.Subscribe(), r.Subscribe()
	defer a.Close()
	defer b.Close()

	if r.Subscribers() != 2 {
		t.Fatalf("Subscribers() = %d", r.Subscribers())
	}

	r.Publish(entity.StreamChunk{RequestID: "r1", Channel: entity.ChannelChat, Type: entity.ChunkDone})
	if next(t, a).RequestID != "r1" || next(t, b).RequestID != "r1" {
		t.Fatal("both subscribers should receive the chunk")
	}
}

func TestRouter_UnsubscribedReaderDoesNotBlockPublisher(t *testing.T) {
	r := NewRouter(1)
	slow := r.Subscribe()

	published := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			r.Publish(entity.StreamChunk{Type: entity.ChunkText})
		}
		close(published)
	}()

	time.Sleep(20 * time.Millisecond)
	slow.Close()
	slow.Close()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher still blocked after unsubscribe")
	}
	if r.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d", r.Subscribers())
	}
}

func TestRouter_CloseEndsSubscriptions(t *testing.T) {
	r := NewRouter(1)
	sub := r.Subscribe()
	r.Close()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not ended by Close")
	}

	late := r.Subscribe()
	select {
	case <-late.Done():
	default:
		t.Fatal("subscription on closed router should be done")
	}

	// 关闭后发布为空操作
	r.Publish(entity.StreamChunk{Type: entity.ChunkDone})
}

func TestAccepts(t *testing.T) {
	chunk := entity.StreamChunk{RequestID: "r2", Channel: entity.ChannelInline}

	cases := []struct {
		name    string
		channel entity.Channel
		active  string
		want    bool
	}{
		{"matching", entity.ChannelInline, "r2", true},
		{"other channel", entity.ChannelChat, "r2", false},
		{"superseded", entity.ChannelInline, "r3", false},
		{"no active request", entity.ChannelInline, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Accepts(chunk, tc.channel, tc.active); got != tc.want {
				t.Fatalf("Accepts() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRouter_EvictsStalledSubscriber(t *testing.T) {
	r := NewRouter(2)
	stalled := r.Subscribe(WithEviction(10 * time.Millisecond))
	healthy := r.Subscribe()
	defer healthy.Close()

	const total = 20
	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < total; i++ {
			r.Publish(entity.StreamChunk{RequestID: "r1", Channel: entity.ChannelChat, Type: entity.ChunkText, Content: "x"})
		}
	}()

	for i := 0; i < total; i++ {
		next(t, healthy)
	}
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a stalled subscriber")
	}

	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled subscriber should be closed")
	}
	if !stalled.Evicted() || r.Subscribers() != 1 {
		t.Fatalf("evicted=%v subscribers=%d", stalled.Evicted(), r.Subscribers())
	}
	if healthy.Evicted() {
		t.Fatal("lossless subscriber must never be evicted")
	}
}

func TestRouter_EvictionWaitsForSlowReader(t *testing.T) {
	r := NewRouter(1)
	slow := r.Subscribe(WithEviction(time.Second))
	defer slow.Close()

	go func() {
		for _, s := range []string{"a", "b", "c"} {
			r.Publish(entity.StreamChunk{RequestID: "r1", Channel: entity.ChannelInline, Type: entity.ChunkText, Content: s})
		}
	}()

	var got string
	for i := 0; i < 3; i++ {
		time.Sleep(5 * time.Millisecond)
		got += next(t, slow).Content
	}
	if got != "abc" || slow.Evicted() {
		t.Fatalf("got %q evicted=%v", got, slow.Evicted())
	}
}
