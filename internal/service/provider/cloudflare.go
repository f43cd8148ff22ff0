package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/zhouzirui/llm-chat/backend/internal/config"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

var errInvalidWorkerResponse = errors.New("cloudflare worker returned no completion")

// CloudflareProvider calls a Workers AI endpoint. The Worker has no streaming
// mode, so Stream replays the full completion in word chunks.
type CloudflareProvider struct {
	workerURL  string
	client     *http.Client
	chunkWords int
	interval   time.Duration
}

func NewCloudflareProvider(cfg config.CloudflareConfig, client *http.Client) *CloudflareProvider {
	words := cfg.ChunkWords
	if words < 1 {
		words = 3
	}
	return &CloudflareProvider{
		workerURL:  cfg.WorkerURL,
		client:     defaultClient(client),
		chunkWords: words,
		interval:   cfg.ChunkInterval,
	}
}

func (p *CloudflareProvider) Kind() Kind { return KindCloudflare }

type workerRequest struct {
	Messages     []completion.Message `json:"messages"`
	MaxTokens    int                  `json:"max_tokens"`
	Temperature  float64              `json:"temperature"`
	SystemPrompt string               `json:"system_prompt"`
}

type workerResponse struct {
	completion.Response
	Result json.RawMessage `json:"response"`
}

func (p *CloudflareProvider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	payload := workerRequest{
		Messages:     req.WithSystemPrompt(),
		MaxTokens:    req.MaxTokens,
		Temperature:  req.TemperatureValue(),
		SystemPrompt: req.SystemPrompt,
	}

	resp, err := postJSON(ctx, p.client, p.workerURL, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("cloudflare request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(KindCloudflare, resp)
	}

	var body workerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cloudflare decode response: %w", err)
	}

	return normalizeWorkerResponse(req.Model, body)
}

// normalizeWorkerResponse accepts either the OpenAI envelope or the raw
// `{"response": ...}` shape returned by Workers AI.
func normalizeWorkerResponse(model string, body workerResponse) (*completion.Response, error) {
	if len(body.Choices) > 0 {
		out := body.Response
		if out.Model == "" {
			out.Model = model
		}
		return &out, nil
	}

	if len(body.Result) == 0 || string(body.Result) == "null" {
		return nil, errInvalidWorkerResponse
	}

	var text string
	if err := json.Unmarshal(body.Result, &text); err != nil {
		// non-string results are passed through as JSON text
		text = string(body.Result)
	}
	return completion.NewResponse(model, text), nil
}

func (p *CloudflareProvider) Stream(ctx context.Context, req completion.Request, onDelta DeltaFunc) error {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return err
	}
	text, err := resp.Text()
	if err != nil {
		return err
	}

	chunks := chunkWords(text, p.chunkWords)
	log.Printf("[cloudflare] replaying %d chunks for model=%s", len(chunks), req.Model)

	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	for _, chunk := range chunks {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if chunk == "" {
			continue
		}
		if err := onDelta(chunk); err != nil {
			return err
		}
	}
	return nil
}

// chunkWords groups space-separated words; concatenating the chunks yields text.
func chunkWords(text string, size int) []string {
	if text == "" {
		return nil
	}
	words := strings.Split(text, " ")
	chunks := make([]string, 0, len(words)/size+1)
	for i := 0; i < len(words); i += size {
		end := i + size
		last := end >= len(words)
		if last {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if !last {
			chunk += " "
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
