package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/llm-chat/backend/internal/config"
)

const defaultOpenAIModel = "gpt-3.5-turbo"

var openAIModels = map[string]string{
	"gpt-3.5-turbo": "gpt-3.5-turbo",
	"gpt-4":         "gpt-4",
}

// OpenAIProvider talks to the chat completions API through the eino OpenAI model.
type OpenAIProvider struct {
	*chainProvider
}

// NewOpenAIProvider builds the provider; non-2xx answers surface as *UpstreamError.
func NewOpenAIProvider(ctx context.Context, cfg config.OpenAIConfig, client *http.Client) (*OpenAIProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}

	chatModel, err := cfg.NewChatModel(ctx, captureUpstream(KindOpenAI, defaultClient(client)), defaultOpenAIModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai chat model: %w", err)
	}
	return newOpenAIProvider(ctx, chatModel)
}

func newOpenAIProvider(ctx context.Context, chatModel model.BaseChatModel) (*OpenAIProvider, error) {
	p, err := newChainProvider(ctx, KindOpenAI, chatModel, defaultOpenAIModel)
	if err != nil {
		return nil, err
	}
	p.resolveModel = resolveOpenAIModel
	return &OpenAIProvider{chainProvider: p}, nil
}

func resolveOpenAIModel(id string) string {
	if m, ok := openAIModels[id]; ok {
		return m
	}
	return defaultOpenAIModel
}
