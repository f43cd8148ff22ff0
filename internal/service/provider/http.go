package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const maxErrorBody = 64 * 1024

func postJSON(ctx context.Context, client *http.Client, url string, payload any, header http.Header) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	return client.Do(req)
}

// upstreamError drains a failed response and extracts a readable message.
func upstreamError(kind Kind, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return parseUpstreamError(kind, resp.StatusCode, raw)
}

// parseUpstreamError understands both `{"error": "..."}` and the OpenAI
// `{"error": {"message": "..."}}` bodies.
func parseUpstreamError(kind Kind, status int, raw []byte) *UpstreamError {
	var parsed struct {
		Error json.RawMessage `json:"error"`
	}
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &parsed) == nil && len(parsed.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(parsed.Error, &nested) == nil && nested.Message != "":
			message = nested.Message
		case json.Unmarshal(parsed.Error, &flat) == nil && flat != "":
			message = flat
		}
	}

	return &UpstreamError{Provider: kind, Status: status, Message: message}
}

type recorderKey struct{}

// upstreamRecorder keeps the last non-2xx answer seen during one call, so the
// status survives however the SDK and the eino chain wrap the error.
type upstreamRecorder struct {
	mu  sync.Mutex
	err *UpstreamError
}

func withUpstreamRecorder(ctx context.Context) (context.Context, *upstreamRecorder) {
	rec := &upstreamRecorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

func (r *upstreamRecorder) set(err *UpstreamError) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// wrap prefers the recorded upstream error over err.
func (r *upstreamRecorder) wrap(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return err
}

// captureUpstream returns a copy of client whose transport records non-2xx
// answers into the call's upstreamRecorder. The body is restored for the SDK.
func captureUpstream(kind Kind, client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &captureTransport{kind: kind, base: base}
	return &wrapped
}

type captureTransport struct {
	kind Kind
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}

	rec, ok := req.Context().Value(recorderKey{}).(*upstreamRecorder)
	if !ok {
		return resp, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	rec.set(parseUpstreamError(t.kind, resp.StatusCode, raw))
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{}
	}
	return client
}
