// Package gateway normalizes incoming completion requests, dispatches them to
// a provider and records bound sessions.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/llm-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/service/provider"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Service is shared by the REST, SSE, GraphQL and websocket endpoints.
type Service struct {
	registry *provider.Registry
	chats    *chatService.Service
	timeout  time.Duration
	extra    []completion.Model
}

// Option customizes a Service.
type Option func(*Service)

// WithModels appends models served by optional providers to the catalog.
func WithModels(models ...completion.Model) Option {
	return func(s *Service) {
		s.extra = append(s.extra, models...)
	}
}

func NewService(registry *provider.Registry, chats *chatService.Service, timeout time.Duration, opts ...Option) *Service {
	s := &Service{registry: registry, chats: chats, timeout: timeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complete runs a non-streaming completion.
func (s *Service) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	p, err := s.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	text, err := resp.Text()
	if err != nil {
		return nil, err
	}
	s.recordTurn(ctx, req, text)

	log.Printf("[gateway] completion provider=%s model=%s length=%d", p.Kind(), req.Model, len(text))
	return resp, nil
}

// Stream forwards deltas to onDelta and returns the assembled text.
func (s *Service) Stream(ctx context.Context, req completion.Request, onDelta provider.DeltaFunc) (string, error) {
	p, err := s.prepare(ctx, &req)
	if err != nil {
		return "", err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var assembled strings.Builder
	err = p.Stream(ctx, req, func(content string) error {
		assembled.WriteString(content)
		return onDelta(content)
	})
	if err != nil {
		return "", fmt.Errorf("streaming failed: %w", err)
	}

	text := assembled.String()
	s.recordTurn(ctx, req, text)

	log.Printf("[gateway] stream completed provider=%s model=%s length=%d", p.Kind(), req.Model, len(text))
	return text, nil
}

// Models lists the models whose provider is configured.
func (s *Service) Models() []completion.Model {
	configured := make(map[string]bool)
	for _, k := range s.registry.Kinds() {
		configured[string(k)] = true
	}

	out := make([]completion.Model, 0, len(s.extra)+3)
	for _, m := range append(completion.Models(), s.extra...) {
		if configured[m.Provider] {
			out = append(out, m)
		}
	}
	return out
}

// Providers lists configured provider names.
func (s *Service) Providers() []string {
	kinds := s.registry.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func (s *Service) prepare(ctx context.Context, req *completion.Request) (provider.Provider, error) {
	if err := req.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	p, err := s.registry.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	if req.SessionID != "" {
		if s.chats == nil {
			return nil, chat.ErrSessionNotFound
		}
		if _, err := s.chats.GetSession(ctx, req.SessionID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// recordTurn appends the user message and the reply together once the
// completion succeeded, so failed attempts and client retries leave no trace.
func (s *Service) recordTurn(ctx context.Context, req completion.Request, reply string) {
	if req.SessionID == "" || s.chats == nil {
		return
	}
	if text, ok := req.LastUserMessage(); ok {
		s.record(ctx, req, completion.RoleUser, text)
	}
	s.record(ctx, req, completion.RoleAssistant, reply)
}

// record appends to the bound session; failures are logged, not surfaced.
func (s *Service) record(ctx context.Context, req completion.Request, role, content string) {
	if req.SessionID == "" || s.chats == nil || content == "" {
		return
	}
	msg := chat.Message{SessionID: req.SessionID, Role: role, Content: content}
	if role == completion.RoleAssistant {
		msg.Model = req.Model
	}
	if _, err := s.chats.SaveMessage(ctx, msg); err != nil {
		log.Printf("[gateway] failed to save %s message for session=%s: %v", role, req.SessionID, err)
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
