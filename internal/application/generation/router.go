package generation

import (
	"sync"
	"sync/atomic"
	"time"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/pkg/metrics"
)

const defaultSubscriberBuffer = 64

// Router 进程级广播：所有通道、所有请求的分片都经过同一个 Router
//
// Router 不做过滤，只保证同一请求的分片按产生顺序到达每个订阅者。
// 默认订阅缓冲写满时发布方阻塞，直到订阅者读取或取消订阅；
// WithEviction 订阅在缓冲持续写满时被移出，不拖慢其他订阅者。
type Router struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription 一个订阅者
type Subscription struct {
	router     *Router
	ch         chan entity.StreamChunk
	done       chan struct{}
	once       sync.Once
	evictAfter time.Duration
	evicted    atomic.Bool
}

// SubscribeOption 订阅选项
type SubscribeOption func(*Subscription)

// WithEviction 缓冲写满后等待 d 仍无法投递时结束订阅，用于进程外的连接
func WithEviction(d time.Duration) SubscribeOption {
	return func(s *Subscription) {
		s.evictAfter = d
	}
}

// NewRouter 创建 Router，buffer 为每个订阅者的缓冲深度
func NewRouter(buffer int) *Router {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Router{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe 新增订阅者；Router 已关闭时返回的订阅立即结束
func (r *Router) Subscribe(opts ...SubscribeOption) *Subscription {
	sub := &Subscription{
		router: r,
		ch:     make(chan entity.StreamChunk, r.buffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sub)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		sub.once.Do(func() { close(sub.done) })
		return sub
	}
	r.subs[sub] = struct{}{}
	metrics.StreamSubscribers.Inc()
	return sub
}

// Publish 把分片依次投递给当前全部订阅者
func (r *Router) Publish(chunk entity.StreamChunk) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(r.subs))
	for sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		if sub.evictAfter > 0 {
			sub.offer(chunk)
			continue
		}
		select {
		case sub.ch <- chunk:
		case <-sub.done:
		}
	}
}

// Close 结束全部订阅
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := r.subs
	r.subs = make(map[*Subscription]struct{})
	r.mu.Unlock()

	for sub := range subs {
		sub.finish()
	}
}

// Subscribers 当前订阅者数量
func (r *Router) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// C 分片通道，永不关闭；结束信号见 Done
func (s *Subscription) C() <-chan entity.StreamChunk { return s.ch }

// Done 订阅结束（Close、驱逐或 Router 关闭）后关闭
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Evicted 订阅是否因消费过慢被移出
func (s *Subscription) Evicted() bool { return s.evicted.Load() }

// Close 取消订阅，可重复调用
func (s *Subscription) Close() {
	s.router.mu.Lock()
	_, ok := s.router.subs[s]
	delete(s.router.subs, s)
	s.router.mu.Unlock()

	if ok {
		s.finish()
	}
}

// offer 先尝试直接投递，缓冲已满时最多等待 evictAfter
func (s *Subscription) offer(chunk entity.StreamChunk) {
	select {
	case s.ch <- chunk:
		return
	case <-s.done:
		return
	default:
	}

	timer := time.NewTimer(s.evictAfter)
	defer timer.Stop()
	select {
	case s.ch <- chunk:
	case <-s.done:
	case <-timer.C:
		if s.evicted.CompareAndSwap(false, true) {
			metrics.StreamEvictionsTotal.Inc()
		}
		s.Close()
	}
}

func (s *Subscription) finish() {
	s.once.Do(func() {
		close(s.done)
		metrics.StreamSubscribers.Dec()
	})
}

// Accepts 订阅者过滤规则：通道一致且 requestId 等于当前活跃请求
func Accepts(chunk entity.StreamChunk, channel entity.Channel, activeID string) bool {
	return chunk.Channel == channel && activeID != "" && chunk.RequestID == activeID
}
