package chatclient

import (
	"strings"

	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

const (
	defaultMaxTokens = 150
	resetMaxTokens   = 300
	// SetModel falls back to this budget when the old one exceeds the new model's limit.
	switchMaxTokens = 1000
)

// Params are the user-tunable generation parameters.
type Params struct {
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	Model        completion.Model
}

// DefaultParams starts on gpt-3.5-turbo.
func DefaultParams() Params {
	model, _ := completion.FindModel("gpt-3.5-turbo")
	return Params{
		Temperature:  completion.DefaultTemperature,
		MaxTokens:    defaultMaxTokens,
		SystemPrompt: completion.DefaultSystemPrompt,
		Model:        model,
	}
}

func (p *Params) SetTemperature(t float64) {
	p.Temperature = completion.ClampTemperature(t)
}

// SetMaxTokens clamps n to [1, model limit].
func (p *Params) SetMaxTokens(n int) {
	if n < 1 {
		n = 1
	}
	if limit := p.Model.MaxTokens; limit > 0 && n > limit {
		n = limit
	}
	p.MaxTokens = n
}

func (p *Params) SetSystemPrompt(prompt string) {
	p.SystemPrompt = prompt
}

func (p *Params) SetModel(m completion.Model) {
	p.Model = m
	if m.MaxTokens > 0 && p.MaxTokens > m.MaxTokens {
		p.MaxTokens = min(switchMaxTokens, m.MaxTokens)
	}
}

// Reset restores the defaults with the first catalog model selected.
func (p *Params) Reset() {
	*p = Params{
		Temperature:  completion.DefaultTemperature,
		MaxTokens:    resetMaxTokens,
		SystemPrompt: completion.DefaultSystemPrompt,
		Model:        completion.Models()[0],
	}
}

// Recipe mirrors the gateway's prompt recipe resource.
type Recipe struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

// Render prefixes input with the recipe prompt.
func (r Recipe) Render(input string) string {
	return r.Prompt + input
}

// ApplyRecipe returns p with the recipe's overrides applied. The recipe's
// model is looked up in available (typically the server's /api/models list)
// and then in the built-in catalog; unknown ids are ignored.
func (p Params) ApplyRecipe(r Recipe, available ...completion.Model) Params {
	if r.Model != "" {
		if m, ok := LookupModel(r.Model, available); ok {
			p.SetModel(m)
		}
	}
	if r.Temperature != nil {
		p.SetTemperature(*r.Temperature)
	}
	if r.MaxTokens != nil {
		p.SetMaxTokens(*r.MaxTokens)
	}
	return p
}

// LookupModel finds id in available, falling back to the built-in catalog.
func LookupModel(id string, available []completion.Model) (completion.Model, bool) {
	for _, m := range available {
		if m.ID == id {
			return m, true
		}
	}
	return completion.FindModel(id)
}

// request builds the wire request from the transcript, skipping streaming
// placeholders and empty turns.
func (p Params) request(messages []Message) completion.Request {
	req := completion.Request{
		Messages:     make([]completion.Message, 0, len(messages)),
		MaxTokens:    p.MaxTokens,
		Temperature:  completion.Float64(p.Temperature),
		SystemPrompt: p.SystemPrompt,
		Model:        p.Model.ID,
		Provider:     p.Model.Provider,
	}
	for _, m := range messages {
		if m.Streaming || strings.TrimSpace(m.Text) == "" {
			continue
		}
		req.Messages = append(req.Messages, completion.Message{Role: m.Role, Content: m.Text})
	}
	return req
}
