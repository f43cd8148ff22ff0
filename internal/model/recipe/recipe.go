package recipe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrPromptRequired = errors.New("prompt is required")
	ErrInvalidParam   = errors.New("invalid recipe parameter")
)

// Recipe is a saved prompt template with optional model parameter overrides.
type Recipe struct {
	ID          string   `json:"id" toml:"id"`
	Title       string   `json:"title" toml:"title"`
	Description string   `json:"description" toml:"description"`
	Prompt      string   `json:"prompt" toml:"prompt"`
	Model       string   `json:"model,omitempty" toml:"model"`
	Temperature *float64 `json:"temperature,omitempty" toml:"temperature"`
	MaxTokens   *int     `json:"maxTokens,omitempty" toml:"max_tokens"`
}

// Validate checks the user-editable fields.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrPromptRequired
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return fmt.Errorf("%w: temperature %.2f out of range [0,1]", ErrInvalidParam, *r.Temperature)
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return fmt.Errorf("%w: maxTokens must be positive, got %d", ErrInvalidParam, *r.MaxTokens)
	}
	return nil
}

// Render prefixes the user's input with the recipe prompt.
func (r Recipe) Render(input string) string {
	return r.Prompt + input
}

// Seed provides the default recipe list.
func Seed() []Recipe {
	return []Recipe{
		{
			ID:          "fix-grammar",
			Title:       "Fix Grammar",
			Description: "Correct grammar and spelling errors in text",
			Prompt:      "Fix the grammar and spelling in the following text: ",
		},
		{
			ID:          "code-review",
			Title:       "Code Review",
			Description: "Get suggestions for code improvements",
			Prompt:      "Please review this code and suggest improvements: ",
		},
		{
			ID:          "brainstorm-ideas",
			Title:       "Brainstorm Ideas",
			Description: "Generate creative ideas and solutions",
			Prompt:      "Help me brainstorm creative ideas for: ",
		},
		{
			ID:          "summarize",
			Title:       "Summarize",
			Description: "Create concise summaries of content",
			Prompt:      "Please provide a concise summary of: ",
		},
		{
			ID:          "debug-help",
			Title:       "Debug Help",
			Description: "Get assistance with troubleshooting issues",
			Prompt:      "I'm having trouble with this issue, can you help me debug: ",
		},
	}
}
