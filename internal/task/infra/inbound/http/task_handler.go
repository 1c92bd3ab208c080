package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DanielCochavi/task-management-system/internal/task/application"
	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
	"github.com/DanielCochavi/task-management-system/pkg/utils"
)

// TaskHandler encapsula los endpoints HTTP relacionados con Task.
type TaskHandler struct {
	service *application.TaskService
	log     *zap.Logger
}

// NewTaskHandler crea un nuevo TaskHandler.
func NewTaskHandler(service *application.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{service: service, log: log}
}

// TaskResponse es la vista pública de una tarea; createdDate es interno.
type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func toResponse(t *taskDomain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func toResponses(tasks []*taskDomain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toResponse(t))
	}
	return out
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Usamos punteros para que los campos sean opcionales en el JSON
type updateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (r updateTaskRequest) toPatch() (taskDomain.TaskPatch, error) {
	var patch taskDomain.TaskPatch
	if r.Title != nil {
		patch.Title = taskDomain.Some(*r.Title)
	}
	if r.Description != nil {
		patch.Description = taskDomain.Some(*r.Description)
	}
	if r.Priority != nil {
		p, err := taskDomain.ParsePriority(*r.Priority)
		if err != nil {
			return patch, err
		}
		patch.Priority = taskDomain.Some(p)
	}
	if r.Status != nil {
		s, err := taskDomain.ParseStatus(*r.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = taskDomain.Some(s)
	}
	return patch, nil
}

// --- Handlers CRUD ---

// CreateTask endpoint POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "invalid request body")
		return
	}

	in := taskDomain.NewTask{Title: req.Title, Description: req.Description}
	if req.Priority != "" {
		p, err := taskDomain.ParsePriority(req.Priority)
		if err != nil {
			h.handleError(c, err)
			return
		}
		in.Priority = p
	}

	task, err := h.service.CreateTask(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SendJSON(c, http.StatusCreated, toResponse(task))
}

// ListTasks endpoint GET /tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.service.ListTasks(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.SendJSON(c, http.StatusOK, toResponses(tasks))
}

// ListUrgentTasks endpoint GET /tasks/urgent
func (h *TaskHandler) ListUrgentTasks(c *gin.Context) {
	tasks, err := h.service.ListUrgentTasks(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.SendJSON(c, http.StatusOK, toResponses(tasks))
}

// GetTask endpoint GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.service.GetTaskByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.SendJSON(c, http.StatusOK, toResponse(task))
}

// UpdateTask endpoint PUT /tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	// Un cuerpo vacío equivale a un patch vacío.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendBadRequest(c, "invalid request body")
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		h.handleError(c, err)
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), id, patch)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.SendJSON(c, http.StatusOK, toResponse(task))
}

// DeleteTask endpoint DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------------- Helpers ----------------

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

// handleError traduce los errores del dominio a códigos HTTP.
func (h *TaskHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, taskDomain.ErrInvalidTask):
		utils.SendBadRequest(c, err.Error())
	case errors.Is(err, taskDomain.ErrTaskNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.Is(err, taskDomain.ErrDuplicateTask):
		utils.SendConflict(c, err.Error())
	default:
		h.log.Error("Unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		utils.SendInternalServerError(c)
	}
}
