package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jaekwang-park/weekplan/internal/model"
	"github.com/jaekwang-park/weekplan/internal/registry"
	"github.com/jaekwang-park/weekplan/internal/session"
)

type TaskHandler struct {
	reg      *registry.Registry
	sessions *session.Manager
}

func NewTaskHandler(reg *registry.Registry, sessions *session.Manager) *TaskHandler {
	return &TaskHandler{reg: reg, sessions: sessions}
}

// ServeHTTP routes /api/v1/tasks, /api/v1/tasks/reorder and /api/v1/tasks/{id}
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !checkScope(w, r, h.sessions) {
		return
	}

	// Extract task ID from path: /api/v1/tasks/{id}/...
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks")
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	taskID := parts[0]
	subPath := ""
	if len(parts) > 1 {
		subPath = parts[1]
	}

	// /api/v1/tasks/reorder
	if taskID == "reorder" && subPath == "" {
		h.handleReorder(w, r)
		return
	}

	// /api/v1/tasks/{id}/status
	if taskID != "" && subPath == "status" {
		h.handleUpdateStatus(w, r, taskID)
		return
	}

	// /api/v1/tasks/{id}
	if taskID != "" {
		switch r.Method {
		case http.MethodPut:
			h.handleUpdate(w, r, taskID)
		case http.MethodDelete:
			h.handleDelete(w, r, taskID)
		default:
			WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		}
		return
	}

	// /api/v1/tasks
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	Day         string `json:"day"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`
}

func (h *TaskHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	task, err := h.reg.AddTask(r.Context(), registry.AddTaskInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Day:         model.Day(req.Day),
		Priority:    model.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
	})
	if err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, task)
}

type updateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	Day         *string `json:"day,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	DueTime     *string `json:"due_time,omitempty"`
}

func (h *TaskHandler) handleUpdate(w http.ResponseWriter, r *http.Request, taskID string) {
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	input := registry.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
	}
	if req.Day != nil {
		day := model.Day(*req.Day)
		input.Day = &day
	}
	if req.Priority != nil {
		priority := model.TaskPriority(*req.Priority)
		input.Priority = &priority
	}

	task, err := h.reg.UpdateTask(r.Context(), taskID, input)
	if err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) handleDelete(w http.ResponseWriter, r *http.Request, taskID string) {
	if err := h.reg.DeleteTask(r.Context(), taskID); err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteNoContent(w)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *TaskHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodPatch {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	task, err := h.reg.SetStatus(r.Context(), taskID, model.TaskStatus(req.Status))
	if err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, task)
}

type reorderRequest struct {
	Day      string `json:"day"`
	MovedID  string `json:"moved_id"`
	TargetID string `json:"target_id"`
}

func (h *TaskHandler) handleReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	day := model.Day(req.Day)
	if !day.IsValid() {
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid day")
		return
	}

	if err := h.reg.Reorder(r.Context(), day, req.MovedID, req.TargetID); err != nil {
		handleRegistryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tasks": h.reg.ListByDay(day)})
}

func (h *TaskHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if dayStr := r.URL.Query().Get("day"); dayStr != "" {
		day := model.Day(dayStr)
		if !day.IsValid() {
			WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid day")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"tasks": h.reg.ListByDay(day)})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tasks": h.reg.ListTasks()})
}

func handleRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, registry.ErrValidation):
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, registry.ErrMigrating):
		WriteError(w, http.StatusConflict, "MIGRATION_IN_FLIGHT", "a data migration is in progress, retry shortly")
	case errors.Is(err, registry.ErrBackingStore):
		WriteError(w, http.StatusBadGateway, "BACKING_STORE", "the backing store rejected the write")
	case errors.Is(err, registry.ErrMigration):
		WriteError(w, http.StatusBadGateway, "MIGRATION_FAILED", "guest data migration failed")
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
