package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
	"github.com/zhouzirui/llm-chat/backend/pkg/sse"
)

// DefaultTimeout is the budget shared by all transports of one Send.
const DefaultTimeout = 60 * time.Second

var (
	ErrAllTransportsFailed = errors.New("all transports failed")
	ErrUnknownModel        = errors.New("unknown model")
)

// StreamError is returned by SendStreaming when the stream fails. Partial is
// the text that had streamed in before the failure; it is not kept in the
// transcript.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string { return e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

type Client struct {
	baseURL    string
	http       *http.Client
	store      *Store
	transports []Transport
	timeout    time.Duration
	onDelta    func(content string)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTransports replaces the default GraphQL then REST order.
func WithTransports(transports ...Transport) Option {
	return func(c *Client) { c.transports = transports }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithStore(s *Store) Option {
	return func(c *Client) { c.store = s }
}

// WithOnDelta registers a hook called for every streamed fragment after it
// has been applied to the store.
func WithOnDelta(fn func(content string)) Option {
	return func(c *Client) { c.onDelta = fn }
}

// New creates a client for the gateway at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewStore()
	}
	if c.transports == nil {
		c.transports = []Transport{
			NewGraphQLTransport(c.baseURL+"/api/graphql", c.http),
			NewRESTTransport(c.baseURL+"/api/proxy", c.http),
		}
	}
	return c
}

func (c *Client) Store() *Store { return c.store }

// Clear empties the transcript.
func (c *Client) Clear() { c.store.Clear() }

// Send appends text as a user turn and tries each transport in order until one
// succeeds; all attempts share one timeout budget. On success exactly one
// assistant message is appended, otherwise the store error is set.
func (c *Client) Send(ctx context.Context, text string, params Params) (string, error) {
	id, err := c.store.BeginSend(text)
	if err != nil {
		return "", err
	}
	req := params.request(c.store.Snapshot().Messages)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	failures := make([]string, 0, len(c.transports))
	for _, t := range c.transports {
		reply, err := complete(ctx, t, req)
		if err == nil {
			if err := c.store.CompleteSend(id, reply); err != nil {
				return "", err
			}
			return reply, nil
		}

		log.Printf("[chatclient] transport %s failed: %v", t.Name(), err)
		failures = append(failures, fmt.Sprintf("%s: %v", t.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}

	sendErr := fmt.Errorf("%w: %s", ErrAllTransportsFailed, strings.Join(failures, "; "))
	c.store.FailSend(id, sendErr)
	return "", sendErr
}

func complete(ctx context.Context, t Transport, req completion.Request) (string, error) {
	resp, err := t.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text()
}

// SendStreaming appends text as a user turn and streams the reply from
// /api/chat-stream into a placeholder message. A transport error, non-2xx
// status or error event discards the placeholder and sets the store error.
// Canceling ctx aborts the stream.
func (c *Client) SendStreaming(ctx context.Context, text string, params Params) (string, error) {
	id, err := c.store.StartStreaming(text)
	if err != nil {
		return "", err
	}
	req := params.request(c.store.Snapshot().Messages)

	fail := func(err error) (string, error) {
		partial := c.store.FailStreaming(id, err)
		return "", &StreamError{Partial: partial, Err: err}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fail(fmt.Errorf("marshal request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat-stream", bytes.NewReader(body))
	if err != nil {
		return fail(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(statusError("streaming", resp))
	}

	completed, err := sse.ReadDeltas(resp.Body, func(content string) error {
		if err := c.store.AppendStreaming(id, content); err != nil {
			return err
		}
		if c.onDelta != nil {
			c.onDelta(content)
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	if !completed {
		log.Printf("[chatclient] stream ended without %s", sse.DoneMarker)
	}

	return c.store.FinishStreaming(id)
}

// ListRecipes fetches the gateway's prompt recipes.
func (c *Client) ListRecipes(ctx context.Context) ([]Recipe, error) {
	var recipes []Recipe
	if err := c.getJSON(ctx, "/api/recipes", &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Models fetches the models whose provider is configured on the gateway.
func (c *Client) Models(ctx context.Context) ([]completion.Model, error) {
	var payload struct {
		Models []completion.Model `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/models", &payload); err != nil {
		return nil, err
	}
	return payload.Models, nil
}

// ResolveModel looks id up among the models the gateway advertises, so
// server-side additions such as an Ark endpoint are selectable. When the
// gateway cannot be reached the built-in catalog is used.
func (c *Client) ResolveModel(ctx context.Context, id string) (completion.Model, error) {
	available, err := c.Models(ctx)
	if err != nil {
		log.Printf("[chatclient] falling back to built-in models: %v", err)
	}
	m, ok := LookupModel(id, available)
	if !ok {
		return completion.Model{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return m, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(strings.TrimPrefix(path, "/api/"), resp)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
