// Package errmap translates service errors into HTTP status codes.
package errmap

import (
	"context"
	"errors"
	"net/http"

	"github.com/zhouzirui/llm-chat/backend/internal/model/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/model/recipe"
	chatService "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/internal/service/provider"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	var upstream *provider.UpstreamError
	switch {
	case errors.Is(err, gateway.ErrInvalidRequest),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, recipe.ErrTitleRequired),
		errors.Is(err, recipe.ErrPromptRequired),
		errors.Is(err, recipe.ErrInvalidParam),
		errors.Is(err, chatService.ErrInvalidRole),
		errors.Is(err, chatService.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, recipe.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
