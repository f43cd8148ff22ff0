package completion

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyChoices = errors.New("completion response has no choices")

// Response follows the OpenAI chat.completion envelope.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage token counts are -1 when the provider does not report them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewResponse wraps a plain completion text into the chat.completion envelope.
func NewResponse(model, content string) *Response {
	return &Response{
		ID:      uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
		Usage: Usage{PromptTokens: -1, CompletionTokens: -1, TotalTokens: -1},
	}
}

// Text returns the first choice's content.
func (r *Response) Text() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return r.Choices[0].Message.Content, nil
}

// Delta is the payload of one streamed event.
type Delta struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}
