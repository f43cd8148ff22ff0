// Package provider forwards completion requests to upstream LLM backends.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

// Kind names one member of the closed provider set.
type Kind string

const (
	KindCloudflare Kind = "cloudflare"
	KindOpenAI     Kind = "openai"
	KindArk        Kind = "ark"
)

var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrProviderUnavailable = errors.New("provider not configured")
)

// DeltaFunc receives streamed text fragments in arrival order.
// Returning an error aborts the stream.
type DeltaFunc func(content string) error

// Provider is implemented by every upstream backend.
type Provider interface {
	Kind() Kind
	Complete(ctx context.Context, req completion.Request) (*completion.Response, error)
	Stream(ctx context.Context, req completion.Request, onDelta DeltaFunc) error
}

// UpstreamError reports a non-2xx answer from a provider.
type UpstreamError struct {
	Provider Kind
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error! status: %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API error! status: %d, message: %s", e.Provider, e.Status, e.Message)
}

// ParseKind validates a provider name.
func ParseKind(name string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(name)))
	switch kind {
	case KindCloudflare, KindOpenAI, KindArk:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Registry dispatches requests to the configured providers.
type Registry struct {
	providers map[Kind]Provider
	fallback  Kind
}

// NewRegistry builds a registry; requests without a provider go to fallback.
func NewRegistry(fallback Kind, providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[Kind]Provider, len(providers)),
		fallback:  fallback,
	}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Kind()] = p
		}
	}
	return r
}

// Resolve returns the provider for name, or the fallback when name is empty.
func (r *Registry) Resolve(name string) (Provider, error) {
	kind := r.fallback
	if strings.TrimSpace(name) != "" {
		parsed, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kind = parsed
	}

	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, kind)
	}
	return p, nil
}

// Kinds lists the configured providers in stable order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
