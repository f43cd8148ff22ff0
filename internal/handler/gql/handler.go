// Package gql exposes the completion gateway as a GraphQL endpoint.
package gql

import (
	"github.com/go-chi/chi/v5"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
)

type Handler struct {
	relay *relay.Handler
}

// New parses the schema against the resolvers; it panics on a mismatch,
// which can only happen at build time.
func New(gw *gateway.Service) *Handler {
	s := graphql.MustParseSchema(schema, &resolver{gateway: gw})
	return &Handler{relay: &relay.Handler{Schema: s}}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/graphql", h.relay.ServeHTTP)
}
