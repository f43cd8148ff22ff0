package config

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Providers  ProvidersConfig
	OpenAI     OpenAIConfig
	Cloudflare CloudflareConfig
	Ark        ArkConfig
	Store      StoreConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	providers, err := loadProvidersConfig()
	if err != nil {
		return nil, err
	}

	cloudflare, err := loadCloudflareConfig()
	if err != nil {
		return nil, err
	}

	arkCfg, err := loadArkConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Providers:  providers,
		OpenAI:     loadOpenAIConfig(),
		Cloudflare: cloudflare,
		Ark:        arkCfg,
		Store:      loadStoreConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ProvidersConfig 描述上游调用的公共设置。
type ProvidersConfig struct {
	Default         string
	UpstreamTimeout time.Duration
}

func loadProvidersConfig() (ProvidersConfig, error) {
	timeout, err := parseOptionalIntEnv("UPSTREAM_TIMEOUT_SECONDS")
	if err != nil {
		return ProvidersConfig{}, err
	}
	seconds := 60
	if timeout != nil {
		if *timeout < 1 {
			return ProvidersConfig{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT_SECONDS value %d", *timeout)
		}
		seconds = *timeout
	}

	return ProvidersConfig{
		Default:         strings.ToLower(getEnvOrDefault("DEFAULT_PROVIDER", "cloudflare")),
		UpstreamTimeout: time.Duration(seconds) * time.Second,
	}, nil
}

// OpenAIConfig 描述 OpenAI 接口配置。
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// Enabled 表示是否提供了 API Key。
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// NewChatModel 创建 OpenAI 模型实例；client 为空时使用默认 HTTP 客户端
func (c OpenAIConfig) NewChatModel(ctx context.Context, client *http.Client, modelName string) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("OPENAI_API_KEY 未配置")
	}

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL + "/v1",
		Model:      modelName,
		HTTPClient: client,
	})
}

func loadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL: strings.TrimRight(getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
	}
}

// CloudflareConfig 描述 Workers AI 代理端点以及模拟流式输出的节奏。
type CloudflareConfig struct {
	WorkerURL     string
	ChunkWords    int
	ChunkInterval time.Duration
}

// Enabled 表示是否配置了 Worker 地址。
func (c CloudflareConfig) Enabled() bool {
	return c.WorkerURL != ""
}

func loadCloudflareConfig() (CloudflareConfig, error) {
	words := 3
	if override, err := parseOptionalIntEnv("STREAM_CHUNK_WORDS"); err != nil {
		return CloudflareConfig{}, err
	} else if override != nil {
		if *override < 1 {
			words = 1
		} else {
			words = *override
		}
	}

	interval := 150 * time.Millisecond
	if override, err := parseOptionalIntEnv("STREAM_CHUNK_INTERVAL_MS"); err != nil {
		return CloudflareConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return CloudflareConfig{}, fmt.Errorf("invalid STREAM_CHUNK_INTERVAL_MS value %d", *override)
		}
		interval = time.Duration(*override) * time.Millisecond
	}

	return CloudflareConfig{
		WorkerURL:     getEnvOrDefault("CLOUDFLARE_WORKER_URL", "https://llama3-api.fountain-city.workers.dev/"),
		ChunkWords:    words,
		ChunkInterval: interval,
	}, nil
}

// ArkConfig 描述火山方舟大模型相关配置。
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadArkConfig() (ArkConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return ArkConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return ArkConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return ArkConfig{}, err
	}

	return ArkConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// StoreConfig 描述会话记录与 prompt recipe 的存储位置。
type StoreConfig struct {
	// DBPath 为空时使用内存存储。
	DBPath      string
	RecipesFile string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		DBPath:      strings.TrimSpace(os.Getenv("CHAT_DB_PATH")),
		RecipesFile: strings.TrimSpace(os.Getenv("RECIPES_FILE")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
