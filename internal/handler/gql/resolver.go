package gql

import (
	"context"
	"log"

	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

const greeting = "Hello from GraphQL!"

type resolver struct {
	gateway *gateway.Service
}

func (r *resolver) Hello() *string {
	s := greeting
	return &s
}

func (r *resolver) Models() []*modelResolver {
	models := r.gateway.Models()
	out := make([]*modelResolver, len(models))
	for i := range models {
		out[i] = &modelResolver{m: models[i]}
	}
	return out
}

type messageInput struct {
	Role    string
	Content string
}

// 字段名与 schema 中的 snake_case 按忽略下划线、大小写匹配。
// 带默认值的字段不能是指针，否则 graphql-go 解析 schema 时无法写入默认值
type chatCompletionInput struct {
	Messages     []messageInput
	MaxTokens    int32
	Temperature  float64
	SystemPrompt string
	Model        string
	Provider     string
	SessionID    *string
}

func (in chatCompletionInput) request() completion.Request {
	req := completion.Request{
		Messages:     make([]completion.Message, len(in.Messages)),
		MaxTokens:    int(in.MaxTokens),
		Temperature:  completion.Float64(in.Temperature),
		SystemPrompt: in.SystemPrompt,
		Model:        in.Model,
		Provider:     in.Provider,
	}
	for i, m := range in.Messages {
		req.Messages[i] = completion.Message{Role: m.Role, Content: m.Content}
	}
	if in.SessionID != nil {
		req.SessionID = *in.SessionID
	}
	return req
}

func (r *resolver) CreateChatCompletion(ctx context.Context, args struct{ Input chatCompletionInput }) (*completionResolver, error) {
	req := args.Input.request()
	log.Printf("[graphql] createChatCompletion provider=%q model=%q messages=%d", req.Provider, req.Model, len(req.Messages))

	resp, err := r.gateway.Complete(ctx, req)
	if err != nil {
		log.Printf("[graphql] createChatCompletion failed: %v", err)
		return nil, err
	}
	return &completionResolver{resp: resp}, nil
}

type completionResolver struct {
	resp *completion.Response
}

func (c *completionResolver) ID() string     { return c.resp.ID }
func (c *completionResolver) Object() string { return c.resp.Object }
func (c *completionResolver) Created() int32 { return int32(c.resp.Created) }
func (c *completionResolver) Model() string  { return c.resp.Model }

func (c *completionResolver) Choices() []*choiceResolver {
	out := make([]*choiceResolver, len(c.resp.Choices))
	for i := range c.resp.Choices {
		out[i] = &choiceResolver{c: c.resp.Choices[i]}
	}
	return out
}

func (c *completionResolver) Usage() *usageResolver {
	return &usageResolver{u: c.resp.Usage}
}

type choiceResolver struct {
	c completion.Choice
}

func (c *choiceResolver) Index() int32 { return int32(c.c.Index) }

func (c *choiceResolver) Message() *messageResolver {
	return &messageResolver{m: c.c.Message}
}

func (c *choiceResolver) FinishReason() string { return c.c.FinishReason }

type messageResolver struct {
	m completion.Message
}

func (m *messageResolver) Role() string    { return m.m.Role }
func (m *messageResolver) Content() string { return m.m.Content }

type usageResolver struct {
	u completion.Usage
}

func (u *usageResolver) PromptTokens() int32     { return int32(u.u.PromptTokens) }
func (u *usageResolver) CompletionTokens() int32 { return int32(u.u.CompletionTokens) }
func (u *usageResolver) TotalTokens() int32      { return int32(u.u.TotalTokens) }

type modelResolver struct {
	m completion.Model
}

func (m *modelResolver) ID() string          { return m.m.ID }
func (m *modelResolver) Name() string        { return m.m.Name }
func (m *modelResolver) Provider() string    { return m.m.Provider }
func (m *modelResolver) Description() string { return m.m.Description }
func (m *modelResolver) MaxTokens() int32    { return int32(m.m.MaxTokens) }
