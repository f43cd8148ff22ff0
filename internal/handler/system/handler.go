package system

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/pkg/utils"
)

// Version is reported by /api/info.
const Version = "1.0.0"

// Handler 提供健康检查、服务信息与模型目录
type Handler struct {
	gateway *gateway.Service
	started time.Time
}

func New(gw *gateway.Service) *Handler {
	return &Handler{gateway: gw, started: time.Now()}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/info", h.handleInfo)
	r.Get("/models", h.handleModels)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"name":      "llm-chat gateway",
		"version":   Version,
		"providers": h.gateway.Providers(),
		"endpoints": []string{
			"POST /api/proxy",
			"POST /api/chat-stream",
			"POST /api/graphql",
			"GET /api/ws",
			"GET /api/models",
			"GET /api/recipes",
			"POST /api/session",
		},
	})
}

// handleModels 只返回已配置 provider 的模型
func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"models": h.gateway.Models(),
	})
}
