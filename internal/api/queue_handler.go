// Package api implements the HTTP surface of the scheduler: the task
// queue endpoints under /api/workers/queue and the worker registry
// endpoints under /api/workers.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ovehub/asset-manager/internal/api/shared"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/service"
)

// AssetDirectory is the slice of the object store the queue handler needs:
// asset metadata lookup and project access checks.
type AssetDirectory interface {
	GetAssetMeta(ctx context.Context, projectID, assetID string) (*domain.AssetMeta, error)
	HasAccess(ctx context.Context, projectID string, groups []string, isAdmin bool) bool
}

// QueueHandler serves the task queue endpoints.
type QueueHandler struct {
	scheduler *service.Scheduler
	assets    AssetDirectory
	logger    *slog.Logger
}

// NewQueueHandler creates a QueueHandler. A nil logger falls back to
// slog.Default.
func NewQueueHandler(scheduler *service.Scheduler, assets AssetDirectory, logger *slog.Logger) *QueueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueHandler{scheduler: scheduler, assets: assets, logger: logger}
}

// ScheduleTask handles POST /api/workers/queue.
func (h *QueueHandler) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.GetUser(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ScheduleTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if !h.assets.HasAccess(r.Context(), req.ProjectID, user.WriteGroups, user.Admin) {
		shared.RespondWithError(w, r, http.StatusForbidden, "Write access to the project is required")
		return
	}

	meta, err := h.assets.GetAssetMeta(r.Context(), req.ProjectID, req.AssetID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	task, err := h.scheduler.ScheduleTask(r.Context(), req.StoreID, req.ProjectID, meta,
		req.WorkerType, user.Username, req.Parameters, req.Priority)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	h.logger.Info("task scheduled",
		slog.String("task_id", task.ID.String()),
		slog.String("project_id", req.ProjectID),
		slog.String("asset_id", req.AssetID),
		slog.String("worker_type", req.WorkerType),
		slog.String("username", user.Username))
	shared.RespondWithJSON(w, r, http.StatusCreated, task.StripCredentials())
}

// ListTasks handles GET /api/workers/queue.
func (h *QueueHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.GetUser(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	tasks, err := h.scheduler.ListTasks(r.Context(), user)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// CancelTask handles DELETE /api/workers/queue.
func (h *QueueHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, h.scheduler.CancelTask)
}

// ResetTask handles PATCH /api/workers/queue.
func (h *QueueHandler) ResetTask(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, h.scheduler.ResetTask)
}

func (h *QueueHandler) taskAction(w http.ResponseWriter, r *http.Request,
	action func(context.Context, uuid.UUID, domain.UserAccess) (bool, error)) {

	user, ok := shared.GetUser(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req TaskActionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	updated, err := action(r.Context(), taskID, user)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if !updated {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ActionResponse{Updated: true})
}
