// Package generation 流式生成请求的协调、广播与生成后处理
package generation

import (
	"context"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/service"
	"z-novel-copilot/internal/infrastructure/llm"
	apperrors "z-novel-copilot/pkg/errors"
	"z-novel-copilot/pkg/logger"
	"z-novel-copilot/pkg/metrics"
)

var tracer = otel.Tracer("generation")

// AdapterSource 按后端类型获取适配器
type AdapterSource interface {
	Get(t entity.ProviderType) (llm.Adapter, error)
}

// Publisher 分片发布目标
type Publisher interface {
	Publish(chunk entity.StreamChunk)
}

// StartRequest 启动一次生成
type StartRequest struct {
	// RequestID 为空时由协调器分配
	RequestID      string
	Channel        entity.Channel
	ProviderID     string
	Messages       []llm.Message
	Options        *entity.GenerationOptions
	Action         entity.GenerationAction
	InputText      string
	ProjectID      string
	ChapterID      string
	ConversationID string
}

// Completion 成功结束的一次生成，交给 CompletionHook
type Completion struct {
	RequestID  string
	Channel    entity.Channel
	ProviderID string
	ProjectID  string
	ChapterID  string
	Action     entity.GenerationAction
	InputText  string
	OutputText string
	Options    *entity.GenerationOptions
}

// CompletionHook 生成成功后的副作用，失败只记录日志
type CompletionHook interface {
	Name() string
	OnComplete(ctx context.Context, c Completion) error
}

type request struct {
	id      string
	channel entity.Channel
	cancel  context.CancelFunc
	aborted atomic.Bool
}

// Coordinator 管理在途请求：按 requestId 的注册表与按通道的活跃索引
type Coordinator struct {
	adapters         AdapterSource
	credentials      service.CredentialResolver
	publisher        Publisher
	hooks            []CompletionHook
	defaultMaxTokens int

	mu       sync.Mutex
	registry map[string]*request
	active   map[entity.Channel]string
	onCancel []func()

	wg sync.WaitGroup
}

// NewCoordinator 创建协调器
func NewCoordinator(adapters AdapterSource, credentials service.CredentialResolver, publisher Publisher, defaultMaxTokens int, hooks ...CompletionHook) *Coordinator {
	return &Coordinator{
		adapters:         adapters,
		credentials:      credentials,
		publisher:        publisher,
		hooks:            hooks,
		defaultMaxTokens: defaultMaxTokens,
		registry:         make(map[string]*request),
		active:           make(map[entity.Channel]string),
	}
}

// Start 注册请求并在独立 goroutine 中消费适配器序列
//
// 新请求覆盖通道的活跃项，旧请求不会被中止，只是其分片会被订阅者丢弃。
// 流的生命周期与调用方 ctx 无关，只由 Cancel/CancelAll 或序列结束决定。
func (c *Coordinator) Start(ctx context.Context, req StartRequest) (string, error) {
	if !req.Channel.Valid() {
		return "", apperrors.New(apperrors.CodeInvalidParam, "invalid channel: "+string(req.Channel))
	}

	id := strings.TrimSpace(req.RequestID)
	if id == "" {
		id = uuid.NewString()
	}
	req.RequestID = id

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &request{id: id, channel: req.Channel, cancel: cancel}

	c.mu.Lock()
	if _, exists := c.registry[id]; exists {
		c.mu.Unlock()
		cancel()
		return "", apperrors.New(apperrors.CodeDuplicateRequest, "request id already in flight: "+id)
	}
	c.registry[id] = r
	c.active[req.Channel] = id
	c.wg.Add(1)
	c.mu.Unlock()

	metrics.GenerationStartedTotal.WithLabelValues(string(req.Channel)).Inc()
	metrics.GenerationInFlight.Inc()

	runCtx = logger.WithContext(runCtx, logger.ChannelKey, string(req.Channel))
	runCtx = logger.WithContext(runCtx, logger.GenerationIDKey, id)
	logger.Info(runCtx, "generation started", "provider_id", req.ProviderID, "action", string(req.Action))

	go c.run(runCtx, r, req)
	return id, nil
}

// Cancel 中止通道的活跃请求并移除活跃项；无活跃请求时为空操作
func (c *Coordinator) Cancel(channel entity.Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.active[channel]
	if !ok {
		return false
	}
	delete(c.active, channel)

	// 注册表项保留到 run 结束，由 run 发出合成 done
	if r, ok := c.registry[id]; ok {
		r.aborted.Store(true)
		r.cancel()
	}
	return true
}

// OnCancelAll 注册 CancelAll 回调，回调先于注册表清空执行且不持有协调器锁
func (c *Coordinator) OnCancelAll(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCancel = append(c.onCancel, fn)
}

// CancelAll 中止全部请求并清空注册表与活跃索引，之后不再发布任何分片
//
// 回调先执行，订阅方借此放弃跟踪的 requestId，缓冲中尚未消费的分片随之失效。
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	observers := append([]func(){}, c.onCancel...)
	c.mu.Unlock()
	for _, fn := range observers {
		fn()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, r := range c.registry {
		r.aborted.Store(true)
		r.cancel()
		delete(c.registry, id)
	}
	for ch := range c.active {
		delete(c.active, ch)
	}
}

// Shutdown CancelAll 后等待全部 goroutine 退出
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.CancelAll()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active 通道当前活跃的 requestId
func (c *Coordinator) Active(channel entity.Channel) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.active[channel]
	return id, ok
}

// InFlight 注册表中的请求数
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.registry)
}

func (c *Coordinator) owns(r *request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry[r.id] == r
}

// unregister 移除注册表项；活跃项仍指向本请求时一并清除，可重复调用
func (c *Coordinator) unregister(r *request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry[r.id] == r {
		delete(c.registry, r.id)
	}
	if c.active[r.channel] == r.id {
		delete(c.active, r.channel)
	}
}

func (c *Coordinator) release(r *request) {
	c.unregister(r)
	r.cancel()
	metrics.GenerationInFlight.Dec()
	c.wg.Done()
}

func (c *Coordinator) run(ctx context.Context, r *request, req StartRequest) {
	defer c.release(r)

	ctx, span := tracer.Start(ctx, "generation.stream",
		trace.WithAttributes(
			attribute.String("generation.request_id", r.id),
			attribute.String("generation.channel", string(r.channel)),
			attribute.String("generation.provider_id", req.ProviderID),
		))
	defer span.End()

	start := time.Now()
	outcome := "silenced"
	defer func() {
		metrics.GenerationFinishedTotal.WithLabelValues(string(r.channel), outcome).Inc()
		metrics.GenerationDuration.WithLabelValues(string(r.channel)).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("generation.outcome", outcome))
		logger.Info(ctx, "generation finished", "outcome", outcome, "duration_ms", time.Since(start).Milliseconds())
	}()

	emit := func(chunk entity.Chunk) {
		metrics.GenerationChunksTotal.WithLabelValues(string(r.channel), string(chunk.Type)).Inc()
		c.publisher.Publish(entity.Stamp(chunk, r.id, r.channel, req.ConversationID))
	}

	// gate 在每个分片之前检查：被 CancelAll 清出注册表时静默停止，被 Cancel 中止时发出合成 done
	gate := func() bool {
		if !c.owns(r) {
			outcome = "silenced"
			return false
		}
		if r.aborted.Load() {
			outcome = "canceled"
			emit(entity.DoneChunk())
			return false
		}
		return true
	}

	seq, err := c.open(ctx, req)
	if err != nil {
		if !gate() {
			return
		}
		outcome = "error"
		span.RecordError(err)
		logger.Warn(ctx, "generation could not start", "error", err.Error())
		emit(entity.ErrorChunk(errorMessage(err)))
		return
	}

	var output strings.Builder
	for chunk := range seq {
		if !gate() {
			return
		}

		emit(chunk)
		switch chunk.Type {
		case entity.ChunkText:
			output.WriteString(chunk.Content)
			continue
		case entity.ChunkError:
			outcome = "error"
			logger.Warn(ctx, "generation failed", "message", chunk.Message)
			return
		case entity.ChunkDone:
			outcome = "done"
			// 流已结束：先注销，副作用期间的 Cancel 不再命中本请求
			c.unregister(r)
			c.complete(ctx, req, output.String())
			return
		}
	}

	// 序列未以终止分片结束：被中止时补发 done，否则视为异常结束
	if !gate() {
		return
	}
	outcome = "error"
	emit(entity.ErrorChunk("stream ended unexpectedly"))
}

// open 解析凭据并构造适配器序列
func (c *Coordinator) open(ctx context.Context, req StartRequest) (iter.Seq[entity.Chunk], error) {
	resolved, err := c.credentials.Resolve(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	adapter, err := c.adapters.Get(resolved.Type)
	if err != nil {
		return nil, err
	}

	cfg := llm.Config{
		Endpoint:   resolved.Endpoint,
		Credential: resolved.Credential,
		Model:      resolved.Model,
		MaxTokens:  MaxTokensFor(req.Options, resolved.MaxTokens, c.defaultMaxTokens),
	}
	if req.Options != nil {
		cfg.Temperature = req.Options.Temperature
	}

	ctx = service.WithChannelProvider(ctx, string(req.Channel), resolved.ProviderID)
	return adapter.Chat(ctx, req.Messages, cfg), nil
}

// complete 执行生成后副作用，失败只记录
func (c *Coordinator) complete(ctx context.Context, req StartRequest, output string) {
	if len(c.hooks) == 0 {
		return
	}

	comp := Completion{
		RequestID:  req.RequestID,
		Channel:    req.Channel,
		ProviderID: req.ProviderID,
		ProjectID:  req.ProjectID,
		ChapterID:  req.ChapterID,
		Action:     req.Action,
		InputText:  req.InputText,
		OutputText: output,
		Options:    req.Options,
	}

	// 中止信号不应影响已完成请求的副作用
	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range c.hooks {
		if err := safeRun(hookCtx, hook, comp); err != nil {
			metrics.GenerationSideEffectFailures.WithLabelValues(hook.Name()).Inc()
			logger.Error(hookCtx, "generation side effect failed", err, "hook", hook.Name())
		}
	}
}

func safeRun(ctx context.Context, hook CompletionHook, comp Completion) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = apperrors.New(apperrors.CodeInternalError, "completion hook panicked")
		}
	}()
	return hook.OnComplete(ctx, comp)
}

// errorMessage 预流错误转为面向用户的文本
func errorMessage(err error) string {
	if apperrors.IsAppError(err) {
		return apperrors.AsAppError(err).Message
	}
	return err.Error()
}
