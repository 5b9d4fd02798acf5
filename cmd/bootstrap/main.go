package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"z-novel-copilot/internal/config"
	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/wire"
	"z-novel-copilot/pkg/utils"
)

const (
	demoProjectID = "00000000-0000-4000-8000-000000000001"
	demoChapterID = "00000000-0000-4000-8000-000000000101"
)

func main() {
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		mintToken(cfg, os.Args[2:])
		return
	}

	fmt.Println("Starting system bootstrap...")
	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	layer, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表
	if err := layer.PgClient.Migrate(); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// 4. 写入生成后端，API Key 加密存储
	names := make([]string, 0, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := cfg.LLM.Providers[name]
		provider := &entity.Provider{
			ID:        name,
			Name:      pc.Name,
			Type:      entity.ProviderType(pc.Type),
			BaseURL:   pc.BaseURL,
			Model:     pc.Model,
			MaxTokens: pc.MaxTokens,
		}
		if provider.Name == "" {
			provider.Name = name
		}
		if pc.APIKey != "" {
			cipher, err := layer.KeyManager.Encrypt(pc.APIKey)
			if err != nil {
				log.Fatalf("failed to encrypt api key for %s: %v", name, err)
			}
			provider.APIKeyCipher = cipher
		} else {
			fmt.Printf("Provider %s has no api key configured.\n", name)
		}
		if err := layer.ProviderRepo.Upsert(ctx, provider); err != nil {
			log.Fatalf("failed to upsert provider %s: %v", name, err)
		}
		fmt.Printf("Provider %s (%s, %s) saved.\n", name, provider.Type, provider.Model)
	}

	// 5. 示例作品与章节
	existing, err := layer.ProjectRepo.GetByID(ctx, demoProjectID)
	if err != nil {
		log.Fatalf("failed to check demo project: %v", err)
	}
	if existing == nil {
		fmt.Println("Creating demo project...")
		err = layer.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
			project := &entity.Project{
				ID:          demoProjectID,
				Title:       "夜航",
				Genre:       "悬疑",
				Description: "一艘深夜离港的渡轮上，乘客们各自藏着秘密。",
			}
			if err := layer.ProjectRepo.Create(txCtx, project); err != nil {
				return err
			}
			content := "雾从海面升起来的时候，渡轮已经离港半小时。"
			return layer.ChapterRepo.Create(txCtx, &entity.Chapter{
				ID:        demoChapterID,
				ProjectID: demoProjectID,
				SeqNum:    1,
				Title:     "第一章 离港",
				Summary:   "主角登上夜航渡轮。",
				Content:   content,
				WordCount: utf8.RuneCountInString(content),
			})
		})
		if err != nil {
			log.Fatalf("failed to create demo project: %v", err)
		}
		fmt.Printf("Demo project created with ID: %s, chapter ID: %s\n", demoProjectID, demoChapterID)
	} else {
		fmt.Printf("Demo project already exists with ID: %s\n", demoProjectID)
	}

	fmt.Println("Bootstrap completed successfully.")
}

// mintToken 签发访问令牌：bootstrap token [user_id] [role]
func mintToken(cfg *config.Config, args []string) {
	userID, role := "local-writer", "writer"
	if len(args) > 0 && args[0] != "" {
		userID = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		role = args[1]
	}

	ttl := cfg.Security.JWT.Expiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	token, err := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).
		Issue(userID, role, ttl)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	fmt.Println(token)
}
