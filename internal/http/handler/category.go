package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jaekwang-park/weekplan/internal/registry"
	"github.com/jaekwang-park/weekplan/internal/session"
)

type CategoryHandler struct {
	reg      *registry.Registry
	sessions *session.Manager
}

func NewCategoryHandler(reg *registry.Registry, sessions *session.Manager) *CategoryHandler {
	return &CategoryHandler{reg: reg, sessions: sessions}
}

// ServeHTTP routes /api/v1/categories and /api/v1/categories/{id}
func (h *CategoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !checkScope(w, r, h.sessions) {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/categories")
	categoryID := strings.TrimPrefix(path, "/")

	if categoryID != "" {
		switch r.Method {
		case http.MethodPut:
			h.handleUpdate(w, r, categoryID)
		case http.MethodDelete:
			h.handleDelete(w, r, categoryID)
		default:
			WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (h *CategoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	category, err := h.reg.AddCategory(r.Context(), registry.CategoryInput{
		Name:  req.Name,
		Color: req.Color,
		Icon:  req.Icon,
	})
	if err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request, categoryID string) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	category, err := h.reg.UpdateCategory(r.Context(), categoryID, registry.CategoryInput{
		Name:  req.Name,
		Color: req.Color,
		Icon:  req.Icon,
	})
	if err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) handleDelete(w http.ResponseWriter, r *http.Request, categoryID string) {
	if err := h.reg.DeleteCategory(r.Context(), categoryID); err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteNoContent(w)
}

func (h *CategoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"categories": h.reg.ListCategories()})
}
