package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/machinebox/graphql"

	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

// Transport delivers a non-streaming completion request to the gateway.
type Transport interface {
	Name() string
	Complete(ctx context.Context, req completion.Request) (*completion.Response, error)
}

const createChatCompletionMutation = `
mutation CreateChatCompletion($input: ChatCompletionInput!) {
	createChatCompletion(input: $input) {
		id
		object
		created
		model
		choices {
			index
			message { role content }
			finish_reason
		}
		usage { prompt_tokens completion_tokens total_tokens }
	}
}`

// GraphQLTransport calls the createChatCompletion mutation.
type GraphQLTransport struct {
	client *graphql.Client
}

func NewGraphQLTransport(endpoint string, hc *http.Client) *GraphQLTransport {
	return &GraphQLTransport{client: graphql.NewClient(endpoint, graphql.WithHTTPClient(hc))}
}

func (t *GraphQLTransport) Name() string { return "graphql" }

// graphQLInput drops the prompt shortcut, which the schema does not accept.
type graphQLInput struct {
	Messages     []completion.Message `json:"messages"`
	MaxTokens    int                  `json:"max_tokens,omitempty"`
	Temperature  *float64             `json:"temperature,omitempty"`
	SystemPrompt string               `json:"system_prompt,omitempty"`
	Model        string               `json:"model,omitempty"`
	Provider     string               `json:"provider,omitempty"`
	SessionID    string               `json:"session_id,omitempty"`
}

func (t *GraphQLTransport) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	gqlReq := graphql.NewRequest(createChatCompletionMutation)
	gqlReq.Var("input", graphQLInput{
		Messages:     req.Messages,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		Provider:     req.Provider,
		SessionID:    req.SessionID,
	})

	var resp struct {
		CreateChatCompletion *completion.Response `json:"createChatCompletion"`
	}
	if err := t.client.Run(ctx, gqlReq, &resp); err != nil {
		return nil, err
	}
	if resp.CreateChatCompletion == nil {
		return nil, completion.ErrEmptyChoices
	}
	return resp.CreateChatCompletion, nil
}

// RESTTransport posts to the /api/proxy endpoint.
type RESTTransport struct {
	endpoint string
	client   *http.Client
}

func NewRESTTransport(endpoint string, hc *http.Client) *RESTTransport {
	return &RESTTransport{endpoint: endpoint, client: hc}
}

func (t *RESTTransport) Name() string { return "rest" }

func (t *RESTTransport) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("proxy", resp)
	}

	var out completion.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode proxy response: %w", err)
	}
	return &out, nil
}

// StatusError reports a non-2xx gateway answer.
type StatusError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error! status: %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s API error! status: %d, message: %s", e.Endpoint, e.Status, e.Message)
}

func statusError(endpoint string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &payload)
	return &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Message: payload.Error}
}
