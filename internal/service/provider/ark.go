package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/llm-chat/backend/internal/config"
)

// ArkProvider serves completions from a Volcengine Ark endpoint. The endpoint
// id is fixed by configuration, so the requested model id is not forwarded.
type ArkProvider struct {
	*chainProvider
}

// NewArkProvider creates the Ark chat model from configuration.
func NewArkProvider(ctx context.Context, cfg config.ArkConfig) (*ArkProvider, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newArkProvider(ctx, chatModel, cfg.Model)
}

func newArkProvider(ctx context.Context, chatModel model.ChatModel, modelName string) (*ArkProvider, error) {
	p, err := newChainProvider(ctx, KindArk, chatModel, modelName)
	if err != nil {
		return nil, err
	}
	return &ArkProvider{chainProvider: p}, nil
}
