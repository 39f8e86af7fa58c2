package api

import (
	"log/slog"
	"net/http"

	"github.com/ovehub/asset-manager/internal/api/shared"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/service"
)

// WorkerHandler serves the worker registry endpoints.
type WorkerHandler struct {
	scheduler *service.Scheduler
	logger    *slog.Logger
}

// NewWorkerHandler creates a WorkerHandler. A nil logger falls back to
// slog.Default.
func NewWorkerHandler(scheduler *service.Scheduler, logger *slog.Logger) *WorkerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerHandler{scheduler: scheduler, logger: logger}
}

// RegisterWorker handles POST /api/workers.
func (h *WorkerHandler) RegisterWorker(w http.ResponseWriter, r *http.Request) {
	var req RegisterWorkerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	worker := &domain.WorkerDescriptor{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Extensions:  req.Extensions,
		Docs:        req.Docs,
		Parameters:  req.Parameters,
	}
	if err := h.scheduler.AddWorker(r.Context(), worker); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	h.logger.Info("worker registered",
		slog.String("name", worker.Name),
		slog.String("type", worker.Type))
	shared.RespondWithJSON(w, r, http.StatusCreated, worker)
}

// ListWorkers handles GET /api/workers. An optional ?name= filter narrows
// the result to one worker.
func (h *WorkerHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.scheduler.WorkerInfo(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, WorkerListResponse{Workers: workers})
}

// RemoveWorker handles DELETE /api/workers.
func (h *WorkerHandler) RemoveWorker(w http.ResponseWriter, r *http.Request) {
	var req RemoveWorkerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if err := h.scheduler.RemoveWorker(r.Context(), req.Name); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	h.logger.Info("worker removed", slog.String("name", req.Name))
	shared.RespondWithJSON(w, r, http.StatusOK, ActionResponse{Updated: true})
}

// UpdateWorkerStatus handles PATCH /api/workers: workers self-report their
// status transitions.
func (h *WorkerHandler) UpdateWorkerStatus(w http.ResponseWriter, r *http.Request) {
	var req WorkerStatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	status, err := domain.ParseWorkerStatus(req.Status)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if err := h.scheduler.UpdateWorkerStatus(r.Context(), req.Name, status, req.ErrorMsg); err != nil {
		RespondMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ActionResponse{Updated: true})
}
