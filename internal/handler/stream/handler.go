package stream

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/llm-chat/backend/internal/handler/errmap"
	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
	"github.com/zhouzirui/llm-chat/backend/pkg/utils"
)

// Handler relays completion deltas to the browser as Server-Sent Events.
type Handler struct {
	gateway *gateway.Service
}

func New(gw *gateway.Service) *Handler {
	return &Handler{gateway: gw}
}

// RegisterRoutes 注册流式接口
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat-stream", h.handleChatStream)
}

// handleChatStream 在第一个增量到达前不写响应头，
// 因此请求校验失败时仍可返回普通的 JSON 错误和非 2xx 状态码。
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var req completion.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sw := &sseWriter{w: w, flusher: flusher}
	text, err := h.gateway.Stream(r.Context(), req, sw.delta)
	if err != nil {
		log.Printf("[stream] chat stream failed: %v", err)
		if !sw.started {
			utils.RespondError(w, errmap.Status(err), err.Error())
			return
		}
		// 已经开始推流，只能在流内报告错误，且不再发送 [DONE]
		if sendErr := utils.SendSSEChunk(w, flusher, completion.Delta{Error: err.Error()}); sendErr != nil {
			log.Printf("[stream] failed to relay error: %v", sendErr)
		}
		return
	}

	sw.start()
	if err := utils.SendSSEDone(w, flusher); err != nil {
		log.Printf("[stream] failed to send terminator: %v", err)
		return
	}
	log.Printf("[stream] chat stream finished length=%d", len(text))
}

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	utils.SetupSSEHeaders(s.w)
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *sseWriter) delta(content string) error {
	s.start()
	return utils.SendSSEChunk(s.w, s.flusher, completion.Delta{Content: content})
}
