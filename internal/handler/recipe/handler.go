package recipe

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/llm-chat/backend/internal/handler/errmap"
	"github.com/zhouzirui/llm-chat/backend/internal/model/recipe"
	"github.com/zhouzirui/llm-chat/backend/pkg/utils"
)

// Handler recipe服务的HTTP处理器
type Handler struct {
	recipes recipe.Store
}

// New 创建recipe处理器
func New(recipes recipe.Store) *Handler {
	return &Handler{
		recipes: recipes,
	}
}

// RegisterRoutes 注册recipe相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleAdd)
		r.Post("/reset", h.handleReset)
		r.Get("/{recipeID}", h.handleGet)
		r.Put("/{recipeID}", h.handleUpdate)
		r.Delete("/{recipeID}", h.handleDelete)
	})
}

// handleList 列出所有recipe
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.recipes.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, ok := h.recipes.FindByID(chi.URLParam(r, "recipeID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, recipe.ErrNotFound.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

// handleAdd 新建自定义recipe，id 由服务端生成
func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload recipe.Recipe
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.recipes.Add(payload)
	if err != nil {
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

// handleUpdate 局部更新，未提供的字段保持不变
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch recipe.Patch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.recipes.Update(chi.URLParam(r, "recipeID"), patch)
	if err != nil {
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.recipes.Delete(chi.URLParam(r, "recipeID")); err != nil {
		utils.RespondError(w, errmap.Status(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusNoContent, nil)
}

// handleReset 恢复默认recipe列表
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.recipes.Reset()
	utils.RespondJSON(w, http.StatusOK, h.recipes.List())
}
