package wire

import (
	"context"
	"net/http"
	"time"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/application/session"
	"z-novel-copilot/internal/config"
	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
	"z-novel-copilot/internal/infrastructure/keymanager"
	"z-novel-copilot/internal/infrastructure/llm"
	"z-novel-copilot/internal/infrastructure/messaging"
	"z-novel-copilot/internal/infrastructure/persistence/postgres"
	"z-novel-copilot/internal/infrastructure/persistence/redis"
	"z-novel-copilot/internal/interfaces/http/handler"
	"z-novel-copilot/internal/interfaces/http/middleware"
	"z-novel-copilot/internal/interfaces/http/router"
	"z-novel-copilot/pkg/logger"
)

const (
	defaultSubscriberBuffer = 64
	defaultContextMaxRunes  = 2000
	defaultHeartbeat        = 15 * time.Second
	defaultLLMTimeout       = 120 * time.Second
)

// App API 网关运行所需的顶层组件
type App struct {
	Router      *router.Router
	Workspace   *session.Workspace
	Coordinator *generation.Coordinator
	Events      *generation.Router
}

// BootstrapLayer 初始化数据所需的依赖
type BootstrapLayer struct {
	PgClient     *postgres.Client
	Tx           repository.Transactor
	ProjectRepo  *postgres.ProjectRepository
	ChapterRepo  *postgres.ChapterRepository
	ProviderRepo *postgres.ProviderRepository
	KeyManager   *keymanager.KeyManager
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideKeyManager 提供 API Key 加解密器
func ProvideKeyManager(cfg *config.Config) (*keymanager.KeyManager, error) {
	return keymanager.New(cfg.Security.EncryptionKey)
}

// ProvideOpenAIAdapter 使用配置中 openai 后端的超时
func ProvideOpenAIAdapter(cfg *config.Config) *llm.OpenAIAdapter {
	return llm.NewOpenAIAdapter(providerTimeout(cfg, "openai"))
}

// ProvideAnthropicAdapter 流式响应不设整体超时，只限制建连与响应头
func ProvideAnthropicAdapter(cfg *config.Config) *llm.AnthropicAdapter {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = providerTimeout(cfg, "anthropic")
	return llm.NewAnthropicAdapter(&http.Client{Transport: transport})
}

func providerTimeout(cfg *config.Config, name string) time.Duration {
	if p, ok := cfg.LLM.Providers[name]; ok && p.Timeout > 0 {
		return p.Timeout
	}
	return defaultLLMTimeout
}

// ProvideProviderCredentials 提供凭据解析器
func ProvideProviderCredentials(repo repository.ProviderRepository, keys *keymanager.KeyManager, cfg *config.Config) *generation.ProviderCredentials {
	return generation.NewProviderCredentials(repo, keys, cfg.LLM.DefaultProvider)
}

// ProvideEventRouter 提供分片路由
func ProvideEventRouter(cfg *config.Config) *generation.Router {
	buffer := cfg.Generation.SubscriberBuffer
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return generation.NewRouter(buffer)
}

// ProvideHistoryRecorder Stream 开启时异步投递，否则直接写库
func ProvideHistoryRecorder(ctx context.Context, cfg *config.Config, producer *messaging.Producer, writer *generation.HistoryWriter) service.HistoryRecorder {
	if cfg.Messaging.RedisStream.Enabled {
		return messaging.NewHistoryPublisher(producer)
	}
	logger.Info(ctx, "redis stream disabled, generation history written inline")
	return writer
}

// ProvideCoordinator 提供协调器
func ProvideCoordinator(cfg *config.Config, adapters generation.AdapterSource, credentials service.CredentialResolver, events *generation.Router, history *generation.HistoryHook) *generation.Coordinator {
	return generation.NewCoordinator(adapters, credentials, events, cfg.Generation.DefaultMaxTokens, history)
}

// ProvideChapterContext 提供章节上下文装配器
func ProvideChapterContext(cfg *config.Config, projects repository.ProjectRepository, chapters repository.ChapterRepository, cache generation.ContextCache) *generation.ChapterContext {
	return generation.NewChapterContext(projects, chapters, cache, cfg.Cache.ContextTTL, contextMaxRunes(cfg))
}

// ProvideWorkspace 提供编辑工作区
func ProvideWorkspace(
	cfg *config.Config,
	gen session.Generator,
	events *generation.Router,
	chapters repository.ChapterRepository,
	assembler service.ContextAssembler,
	transcripts service.TranscriptStore,
) *session.Workspace {
	return session.NewWorkspace(gen, events, chapters, assembler, transcripts, contextMaxRunes(cfg))
}

func contextMaxRunes(cfg *config.Config) int {
	if cfg.Generation.ContextMaxRunes > 0 {
		return cfg.Generation.ContextMaxRunes
	}
	return defaultContextMaxRunes
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, coordinator *generation.Coordinator) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, coordinator,
		handler.Dependency{Name: "postgres", Checker: pg},
		handler.Dependency{Name: "redis", Checker: redisClient},
	)
}

// ProvideEventsHandler 提供 SSE 处理器
func ProvideEventsHandler(cfg *config.Config, events *generation.Router, ws *session.Workspace) *handler.EventsHandler {
	heartbeat := cfg.Generation.SSEHeartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return handler.NewEventsHandler(events, ws, heartbeat, cfg.Generation.SSESendTimeout)
}

// ProvideHTTPRouter 提供 HTTP 路由器
func ProvideHTTPRouter(cfg *config.Config, handlers *router.Handlers, limiter middleware.RateLimiter) *router.Router {
	return router.New(cfg, handlers, limiter)
}
