//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/application/session"
	"z-novel-copilot/internal/config"
	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
	"z-novel-copilot/internal/infrastructure/llm"
	"z-novel-copilot/internal/infrastructure/persistence/postgres"
	"z-novel-copilot/internal/infrastructure/persistence/redis"
	"z-novel-copilot/internal/interfaces/http/handler"
	"z-novel-copilot/internal/interfaces/http/middleware"
	"z-novel-copilot/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		LLMSet,
		GenerationSet,
		SessionSet,
		HandlerSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 仅初始化 PostgreSQL 与密钥（用于 bootstrap）
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*BootstrapLayer, func(), error) {
	wire.Build(
		RepoSet,
		ProvideKeyManager,
		wire.Struct(new(BootstrapLayer), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewChapterRepository,
	postgres.NewConversationRepository,
	postgres.NewGenerationHistoryRepository,
	postgres.NewProviderRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.ConversationRepository), new(*postgres.ConversationRepository)),
	wire.Bind(new(repository.GenerationHistoryRepository), new(*postgres.GenerationHistoryRepository)),
	wire.Bind(new(repository.ProviderRepository), new(*postgres.ProviderRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(generation.ContextCache), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// LLMSet 后端适配器与凭据
var LLMSet = wire.NewSet(
	ProvideOpenAIAdapter,
	ProvideAnthropicAdapter,
	llm.NewDefaultRegistry,
	ProvideKeyManager,
	ProvideProviderCredentials,
	wire.Bind(new(generation.AdapterSource), new(*llm.Registry)),
	wire.Bind(new(service.CredentialResolver), new(*generation.ProviderCredentials)),
)

// GenerationSet 协调器、路由与生成后处理
var GenerationSet = wire.NewSet(
	ProvideEventRouter,
	generation.NewHistoryWriter,
	ProvideHistoryRecorder,
	generation.NewHistoryHook,
	ProvideCoordinator,
	ProvideChapterContext,
	wire.Bind(new(service.ContextAssembler), new(*generation.ChapterContext)),
)

// SessionSet 编辑会话
var SessionSet = wire.NewSet(
	session.NewRepositoryTranscript,
	ProvideWorkspace,
	wire.Bind(new(service.TranscriptStore), new(*session.RepositoryTranscript)),
	wire.Bind(new(session.Generator), new(*generation.Coordinator)),
)

// HandlerSet HTTP 处理器与路由
var HandlerSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewGenerationHandler,
	handler.NewInlineHandler,
	handler.NewChatHandler,
	handler.NewHistoryHandler,
	ProvideEventsHandler,
	wire.Bind(new(handler.GenerationService), new(*generation.Coordinator)),
	wire.Struct(new(router.Handlers), "*"),
	ProvideHTTPRouter,
)
