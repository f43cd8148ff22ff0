package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/internal/service/provider"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

type echoProvider struct {
	kind provider.Kind
	err  error
}

func (p echoProvider) Kind() provider.Kind { return p.kind }

func (p echoProvider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	last, _ := req.LastUserMessage()
	return completion.NewResponse(req.Model, "echo: "+last), nil
}

func (p echoProvider) Stream(ctx context.Context, req completion.Request, onDelta provider.DeltaFunc) error {
	return p.err
}

func setup(p provider.Provider, chats *chatService.Service) http.Handler {
	registry := provider.NewRegistry(provider.KindCloudflare, p)
	r := chi.NewRouter()
	New(gateway.NewService(registry, chats, 0)).RegisterRoutes(r)
	return r
}

func post(router http.Handler, body string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/proxy", bytes.NewBufferString(body)))
	return resp
}

func TestProxyReturnsCompletion(t *testing.T) {
	router := setup(echoProvider{kind: provider.KindCloudflare}, nil)

	resp := post(router, `{"messages":[{"role":"user","content":"hello"}]}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out completion.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	text, err := out.Text()
	if err != nil {
		t.Fatalf("Text err: %v", err)
	}
	if text != "echo: hello" {
		t.Fatalf("unexpected text %q", text)
	}
	if out.Model != completion.DefaultModel {
		t.Fatalf("expected default model, got %q", out.Model)
	}
}

func TestProxyErrorStatuses(t *testing.T) {
	cases := []struct {
		name     string
		provider provider.Provider
		body     string
		want     int
	}{
		{"malformed json", echoProvider{kind: provider.KindCloudflare}, `{`, http.StatusBadRequest},
		{"missing messages", echoProvider{kind: provider.KindCloudflare}, `{}`, http.StatusBadRequest},
		{"bad role", echoProvider{kind: provider.KindCloudflare}, `{"messages":[{"role":"robot","content":"x"}]}`, http.StatusBadRequest},
		{"unknown provider", echoProvider{kind: provider.KindCloudflare}, `{"prompt":"x","provider":"bard"}`, http.StatusBadRequest},
		{"unconfigured provider", echoProvider{kind: provider.KindCloudflare}, `{"prompt":"x","provider":"openai"}`, http.StatusServiceUnavailable},
		{"unknown session", echoProvider{kind: provider.KindCloudflare}, `{"prompt":"x","session_id":"nope"}`, http.StatusNotFound},
		{"upstream failure", echoProvider{kind: provider.KindCloudflare, err: &provider.UpstreamError{Provider: provider.KindCloudflare, Status: 500}}, `{"prompt":"x"}`, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(setup(tc.provider, chatService.NewService()), tc.body)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, resp.Code, resp.Body.String())
			}

			var payload map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				t.Fatalf("decode err: %v", err)
			}
			if payload["error"] == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestProxyRecordsSession(t *testing.T) {
	chats := chatService.NewService()
	session, err := chats.CreateSession(context.Background(), "demo")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	router := setup(echoProvider{kind: provider.KindCloudflare}, chats)
	resp := post(router, `{"prompt":"ping","session_id":"`+session.ID+`"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	transcript, err := chats.LoadTranscript(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("expected 2 recorded messages, got %d", len(transcript))
	}
	if transcript[1].Content != "echo: ping" {
		t.Fatalf("unexpected assistant message %q", transcript[1].Content)
	}
}
