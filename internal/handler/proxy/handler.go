package proxy

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/llm-chat/backend/internal/handler/errmap"
	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
	"github.com/zhouzirui/llm-chat/backend/pkg/utils"
)

// Handler serves the non-streaming proxy endpoint.
type Handler struct {
	gateway *gateway.Service
}

func New(gw *gateway.Service) *Handler {
	return &Handler{gateway: gw}
}

// RegisterRoutes 注册代理接口
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/proxy", h.handleProxy)
}

func (h *Handler) handleProxy(w http.ResponseWriter, r *http.Request) {
	var req completion.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.gateway.Complete(r.Context(), req)
	if err != nil {
		log.Printf("[proxy] completion failed: %v", err)
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}
