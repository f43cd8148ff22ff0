package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/llm-chat/backend/internal/handler/errmap"
	"github.com/zhouzirui/llm-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
	"github.com/zhouzirui/llm-chat/backend/pkg/utils"
)

// Handler 会话记录的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Delete("/session/{sessionID}/messages", h.handleClearMessages)
	r.Post("/messages", h.handleSaveMessage)
}

// handleCreateSession 创建会话，title 可选
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}

	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.Title)
	if err != nil {
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleListMessages 返回会话的完整记录
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleClearMessages 清空记录但保留会话
func (h *Handler) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.ClearTranscript(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusNoContent, nil)
}

// handleSaveMessage 保存消息
func (h *Handler) handleSaveMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Role      string `json:"role"`
		Content   string `json:"content"`
		Model     string `json:"model"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.chatSvc.SaveMessage(r.Context(), chat.Message{
		SessionID: payload.SessionID,
		Role:      payload.Role,
		Content:   payload.Content,
		Model:     payload.Model,
	})
	if err != nil {
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, saved)
}
