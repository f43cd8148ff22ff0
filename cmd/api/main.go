package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/llm-chat/backend/internal/config"
	"github.com/zhouzirui/llm-chat/backend/internal/handler"
	"github.com/zhouzirui/llm-chat/backend/internal/model/recipe"
	"github.com/zhouzirui/llm-chat/backend/internal/service/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/internal/service/provider"
	"github.com/zhouzirui/llm-chat/backend/internal/store/sqlite"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize transcript store and chat service
	chatService := chat.NewService()
	if cfg.Store.DBPath != "" {
		db, err := sqlite.Open(ctx, cfg.Store.DBPath)
		if err != nil {
			log.Fatalf("failed to open chat database: %v", err)
		}
		defer db.Close()
		chatService = chat.NewServiceWithStore(db)
		log.Printf("chat transcripts stored in %s", cfg.Store.DBPath)
	} else {
		log.Println("CHAT_DB_PATH 未配置，会话记录仅保存在内存中")
	}

	recipeStore, err := loadRecipes(cfg.Store)
	if err != nil {
		log.Fatalf("failed to load recipes: %v", err)
	}

	registry, opts, err := buildProviders(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to configure providers: %v", err)
	}

	gw := gateway.NewService(registry, chatService, cfg.Providers.UpstreamTimeout, opts...)
	router := handler.NewRouter(gw, chatService, recipeStore)

	startServer(ctx, cfg.Server, router)
}

func loadRecipes(cfg config.StoreConfig) (*recipe.MemoryStore, error) {
	if cfg.RecipesFile == "" {
		return recipe.NewMemoryStore(recipe.Seed()), nil
	}
	items, err := recipe.LoadFile(cfg.RecipesFile)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %d recipes from %s", len(items), cfg.RecipesFile)
	return recipe.NewMemoryStore(items), nil
}

// buildProviders registers every provider whose credentials are present.
func buildProviders(ctx context.Context, cfg *config.Config) (*provider.Registry, []gateway.Option, error) {
	fallback, err := provider.ParseKind(cfg.Providers.Default)
	if err != nil {
		return nil, nil, err
	}

	client := &http.Client{}
	var (
		providers []provider.Provider
		opts      []gateway.Option
	)

	if cfg.Cloudflare.Enabled() {
		providers = append(providers, provider.NewCloudflareProvider(cfg.Cloudflare, client))
		log.Printf("cloudflare provider enabled worker=%s", cfg.Cloudflare.WorkerURL)
	}

	if cfg.OpenAI.Enabled() {
		openAIProvider, err := provider.NewOpenAIProvider(ctx, cfg.OpenAI, client)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, openAIProvider)
		log.Println("openai provider enabled")
	} else {
		log.Println("OPENAI_API_KEY 未配置，跳过 OpenAI provider")
	}

	if cfg.Ark.Enabled() {
		arkProvider, err := provider.NewArkProvider(ctx, cfg.Ark)
		if err != nil {
			log.Printf("warning: failed to initialize ark provider: %v", err)
			log.Println("continuing without ark - 请检查 Ark 模型相关环境变量")
		} else {
			providers = append(providers, arkProvider)
			opts = append(opts, gateway.WithModels(arkModel(cfg.Ark)))
			log.Printf("ark provider enabled model=%s", cfg.Ark.Model)
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 Ark provider")
	}

	if len(providers) == 0 {
		return nil, nil, errors.New("no provider configured")
	}
	return provider.NewRegistry(fallback, providers...), opts, nil
}

func arkModel(cfg config.ArkConfig) completion.Model {
	maxTokens := 4096
	if cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}
	return completion.Model{
		ID:          cfg.Model,
		Name:        cfg.Model,
		Provider:    string(provider.KindArk),
		Description: "Volcengine Ark endpoint",
		MaxTokens:   maxTokens,
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("LLM chat gateway listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
