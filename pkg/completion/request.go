package completion

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults mirror the GraphQL input defaults exposed by the gateway.
const (
	DefaultMaxTokens    = 1000
	DefaultTemperature  = 0.7
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultModel        = "llama-3-8b-instruct"
	DefaultProvider     = "cloudflare"
)

// Roles accepted on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// legacy alias sent by older front ends
	roleAI = "ai"
)

var (
	ErrMissingMessages = errors.New("missing required field: prompt or messages")
	ErrInvalidRole     = errors.New("invalid message role")
)

// Message is one conversation turn in provider format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the payload accepted by the proxy, stream and GraphQL endpoints.
type Request struct {
	Messages     []Message `json:"messages"`
	Prompt       string    `json:"prompt,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Model        string    `json:"model,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
}

// Normalize fills defaults, folds the prompt shortcut into messages and validates the result.
func (r *Request) Normalize() error {
	if r.MaxTokens < 0 {
		return fmt.Errorf("invalid max_tokens %d", r.MaxTokens)
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}

	temperature := DefaultTemperature
	if r.Temperature != nil {
		temperature = ClampTemperature(*r.Temperature)
	}
	r.Temperature = &temperature

	if strings.TrimSpace(r.SystemPrompt) == "" {
		r.SystemPrompt = DefaultSystemPrompt
	}
	if strings.TrimSpace(r.Model) == "" {
		r.Model = DefaultModel
	}
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))

	if len(r.Messages) == 0 {
		if strings.TrimSpace(r.Prompt) == "" {
			return ErrMissingMessages
		}
		r.Messages = []Message{
			{Role: RoleSystem, Content: r.SystemPrompt},
			{Role: RoleUser, Content: r.Prompt},
		}
		r.Prompt = ""
	}

	for i := range r.Messages {
		role := strings.ToLower(strings.TrimSpace(r.Messages[i].Role))
		switch role {
		case roleAI:
			role = RoleAssistant
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidRole, r.Messages[i].Role)
		}
		r.Messages[i].Role = role
	}

	return nil
}

// TemperatureValue returns the temperature or the default when unset.
func (r Request) TemperatureValue() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// WithSystemPrompt returns the messages prefixed by the system prompt unless one is already present.
func (r Request) WithSystemPrompt() []Message {
	if len(r.Messages) > 0 && r.Messages[0].Role == RoleSystem {
		return append([]Message(nil), r.Messages...)
	}
	out := make([]Message, 0, len(r.Messages)+1)
	if r.SystemPrompt != "" {
		out = append(out, Message{Role: RoleSystem, Content: r.SystemPrompt})
	}
	return append(out, r.Messages...)
}

// LastUserMessage returns the content of the most recent user turn.
func (r Request) LastUserMessage() (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content, true
		}
	}
	return "", false
}

// ClampTemperature bounds t to [0,1].
func ClampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Float64 is a small helper for optional request fields.
func Float64(v float64) *float64 { return &v }
