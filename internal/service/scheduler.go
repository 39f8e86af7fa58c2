// Package service implements the scheduler: the API-facing component that
// accepts processing requests, manages the task queue and the worker
// registry, and enforces project access control.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/logger"
	"github.com/ovehub/asset-manager/internal/store"
)

// AccessChecker gates scheduler operations on project write access. The
// object store client implements it; tests substitute fakes.
type AccessChecker interface {
	HasAccess(ctx context.Context, projectID string, groups []string, isAdmin bool) bool
}

// Scheduler accepts "process this asset" requests, inserts tasks into the
// persistent queue and exposes cancel/reset/list operations over the queue
// and the worker registry. All state lives in the stores; the scheduler
// itself is safe for concurrent use from request handlers.
type Scheduler struct {
	tasks   store.TaskStore
	workers store.WorkerStore
	access  AccessChecker
	store   domain.StoreConfig
	logger  *slog.Logger
}

// NewScheduler creates a scheduler over the given stores. storeCfg is the
// connection configuration copied into every scheduled task so workers can
// reach the object store. If logger is nil, the default logger is used.
func NewScheduler(tasks store.TaskStore, workers store.WorkerStore, access AccessChecker,
	storeCfg domain.StoreConfig, logger *slog.Logger) *Scheduler {

	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		tasks:   tasks,
		workers: workers,
		access:  access,
		store:   storeCfg,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// ScheduleTask derives the effective filename from the task options
// (falling back to the asset's filename), and inserts a NEW task. Repeated
// scheduling produces independent tasks; consumption order is priority
// descending, then most recent first.
func (s *Scheduler) ScheduleTask(ctx context.Context, storeID, projectID string, meta *domain.AssetMeta,
	workerType, username string, options map[string]string, priority int) (*domain.Task, error) {

	if strings.TrimSpace(workerType) == "" {
		return nil, fmt.Errorf("%w: worker_type", domain.ErrMissingParameter)
	}

	filename := ""
	if options != nil {
		filename = options["filename"]
	}
	if strings.TrimSpace(filename) == "" {
		filename = meta.Filename
	}

	credentials := s.store
	task := domain.NewTask(storeID, projectID, meta.ID, workerType, username,
		filename, options, &credentials, priority)
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns the tasks visible to the caller: everything for admins,
// otherwise only tasks in projects the caller has write access to.
// Credentials are stripped from every result.
func (s *Scheduler) ListTasks(ctx context.Context, user domain.UserAccess) ([]*domain.Task, error) {
	all, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]*domain.Task, 0, len(all))
	for _, task := range all {
		if !s.access.HasAccess(ctx, task.ProjectID, user.WriteGroups, user.Admin) {
			continue
		}
		visible = append(visible, task.StripCredentials())
	}
	return visible, nil
}

// CancelTask marks a task CANCELED, with startTime == endTime == now.
// Returns false, without error, when the task does not exist or the caller
// lacks access. Cancelling a task already being processed does not
// interrupt the worker; it only updates queue bookkeeping.
func (s *Scheduler) CancelTask(ctx context.Context, taskID uuid.UUID, user domain.UserAccess) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	if !s.access.HasAccess(ctx, task.ProjectID, user.WriteGroups, user.Admin) {
		return false, nil
	}

	if err := s.tasks.Cancel(ctx, taskID); err != nil {
		return false, err
	}
	log.Info("task canceled",
		slog.String("task_id", taskID.String()),
		slog.String("username", user.Username))
	return true, nil
}

// ResetTask returns a task to NEW, clearing its start/end times, so it can
// be claimed again. Access rules match CancelTask. Resetting a NEW task is
// idempotent.
func (s *Scheduler) ResetTask(ctx context.Context, taskID uuid.UUID, user domain.UserAccess) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	if !s.access.HasAccess(ctx, task.ProjectID, user.WriteGroups, user.Admin) {
		return false, nil
	}

	if err := s.tasks.Reset(ctx, taskID); err != nil {
		return false, err
	}
	log.Info("task reset",
		slog.String("task_id", taskID.String()),
		slog.String("username", user.Username))
	return true, nil
}

// AddWorker registers a worker descriptor, defaulting its status to READY.
func (s *Scheduler) AddWorker(ctx context.Context, worker *domain.WorkerDescriptor) error {
	if worker.Status == "" {
		worker.Status = domain.WorkerStatusReady
	}
	return s.workers.Register(ctx, worker)
}

// RemoveWorker unregisters a worker by name.
func (s *Scheduler) RemoveWorker(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name", domain.ErrMissingParameter)
	}
	return s.workers.Remove(ctx, name)
}

// WorkerInfo returns the registered worker descriptors, optionally filtered
// by name.
func (s *Scheduler) WorkerInfo(ctx context.Context, name string) ([]*domain.WorkerDescriptor, error) {
	return s.workers.List(ctx, name)
}

// WorkerStatuses returns a name -> status map of the registered workers,
// optionally filtered by name.
func (s *Scheduler) WorkerStatuses(ctx context.Context, name string) (map[string]domain.WorkerStatus, error) {
	workers, err := s.workers.List(ctx, name)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]domain.WorkerStatus, len(workers))
	for _, w := range workers {
		statuses[w.Name] = w.Status
	}
	return statuses, nil
}

// UpdateWorkerStatus records a worker's self-reported status.
func (s *Scheduler) UpdateWorkerStatus(ctx context.Context, name string, status domain.WorkerStatus, errMsg string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name", domain.ErrMissingParameter)
	}
	if _, err := domain.ParseWorkerStatus(string(status)); err != nil {
		return err
	}
	return s.workers.UpdateStatus(ctx, name, status, errMsg)
}
