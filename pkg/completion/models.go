package completion

// Model describes a selectable model and the provider that serves it.
type Model struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Provider    string `json:"provider" toml:"provider"`
	Description string `json:"description" toml:"description"`
	MaxTokens   int    `json:"maxTokens" toml:"max_tokens"`
}

var catalog = []Model{
	{
		ID:          "llama-3-8b-instruct",
		Name:        "Llama 3 8B Instruct",
		Provider:    "cloudflare",
		Description: "Fast and efficient model via Cloudflare Workers AI",
		MaxTokens:   4000,
	},
	{
		ID:          "gpt-3.5-turbo",
		Name:        "GPT-3.5 Turbo",
		Provider:    "openai",
		Description: "OpenAI's fast and cost-effective model",
		MaxTokens:   4096,
	},
	{
		ID:          "gpt-4",
		Name:        "GPT-4",
		Provider:    "openai",
		Description: "OpenAI's most capable model",
		MaxTokens:   8192,
	},
}

// Models returns a copy of the built-in catalog.
func Models() []Model {
	return append([]Model(nil), catalog...)
}

// FindModel looks up a catalog entry by id.
func FindModel(id string) (Model, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
