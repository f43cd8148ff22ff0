package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/llm-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/handler/gql"
	"github.com/zhouzirui/llm-chat/backend/internal/handler/proxy"
	"github.com/zhouzirui/llm-chat/backend/internal/handler/recipe"
	"github.com/zhouzirui/llm-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/llm-chat/backend/internal/handler/system"
	"github.com/zhouzirui/llm-chat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/llm-chat/backend/internal/middleware"
	recipeModel "github.com/zhouzirui/llm-chat/backend/internal/model/recipe"
	chatService "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(gw *gateway.Service, chatSvc *chatService.Service, recipes recipeModel.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS())

	r.Route("/api", func(api chi.Router) {
		system.New(gw).RegisterRoutes(api)

		// 三种补全入口共用同一个 gateway
		proxy.New(gw).RegisterRoutes(api)
		stream.New(gw).RegisterRoutes(api)
		gql.New(gw).RegisterRoutes(api)
		ws.New(gw).RegisterRoutes(api)

		recipe.New(recipes).RegisterRoutes(api)

		if chatSvc != nil {
			chat.New(chatSvc).RegisterRoutes(api)
		}
	})

	return r
}
