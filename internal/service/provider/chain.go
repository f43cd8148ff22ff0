package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

// chainProvider runs any eino chat model behind a `system + history` template.
// Ark and OpenAI share it; they differ only in the model they compile in.
type chainProvider struct {
	kind      Kind
	modelName string
	// resolveModel maps the requested model id to the upstream one; nil keeps modelName.
	resolveModel func(id string) string
	chain        compose.Runnable[map[string]any, *schema.Message]
}

func newChainProvider(ctx context.Context, kind Kind, chatModel model.BaseChatModel, modelName string) (*chainProvider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s chain: %w", kind, err)
	}

	return &chainProvider{kind: kind, modelName: modelName, chain: runnable}, nil
}

func (p *chainProvider) Kind() Kind { return p.kind }

func (p *chainProvider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	ctx, rec := withUpstreamRecorder(ctx)

	msg, err := p.chain.Invoke(ctx, buildChainInput(req), p.callOptions(req))
	if err != nil {
		return nil, rec.wrap(fmt.Errorf("failed to run %s chain: %w", p.kind, err))
	}

	name := p.model(req)
	log.Printf("[%s] generated response model=%s length=%d", p.kind, name, len(msg.Content))

	resp := completion.NewResponse(name, msg.Content)
	if meta := msg.ResponseMeta; meta != nil && meta.Usage != nil && meta.Usage.TotalTokens > 0 {
		resp.Usage = completion.Usage{
			PromptTokens:     meta.Usage.PromptTokens,
			CompletionTokens: meta.Usage.CompletionTokens,
			TotalTokens:      meta.Usage.TotalTokens,
		}
	}
	return resp, nil
}

func (p *chainProvider) Stream(ctx context.Context, req completion.Request, onDelta DeltaFunc) error {
	ctx, rec := withUpstreamRecorder(ctx)

	stream, err := p.chain.Stream(ctx, buildChainInput(req), p.callOptions(req))
	if err != nil {
		return rec.wrap(fmt.Errorf("failed to stream %s chain output: %w", p.kind, err))
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			return rec.wrap(recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := onDelta(chunk.Content); err != nil {
			return err
		}
	}
}

func (p *chainProvider) model(req completion.Request) string {
	if p.resolveModel == nil {
		return p.modelName
	}
	return p.resolveModel(req.Model)
}

func (p *chainProvider) callOptions(req completion.Request) compose.Option {
	opts := []model.Option{
		model.WithTemperature(float32(req.TemperatureValue())),
		model.WithMaxTokens(req.MaxTokens),
	}
	if p.resolveModel != nil {
		opts = append(opts, model.WithModel(p.resolveModel(req.Model)))
	}
	return compose.WithChatModelOption(opts...)
}

// buildChainInput maps the request onto the template variables. A leading
// system message overrides the request's system prompt.
func buildChainInput(req completion.Request) map[string]any {
	system := req.SystemPrompt
	messages := req.Messages
	if len(messages) > 0 && messages[0].Role == completion.RoleSystem {
		system = messages[0].Content
		messages = messages[1:]
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case completion.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case completion.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		case completion.RoleSystem:
			history = append(history, schema.SystemMessage(msg.Content))
		}
	}

	return map[string]any{
		"system":  system,
		"history": history,
	}
}
