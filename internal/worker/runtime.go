package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/store"
)

// DefaultPollInterval is the sleep between empty claim attempts.
const DefaultPollInterval = 5 * time.Second

// StoreConnector builds an asset store client from per-task credentials.
// Production wires the object store's Connect; tests inject fakes.
type StoreConnector func(cfg *domain.StoreConfig, logger *slog.Logger) (AssetStore, error)

// Runtime drives one worker process: it registers the worker, polls the
// task queue and runs claimed tasks through the plugin.
type Runtime struct {
	name         string
	plugin       Plugin
	tasks        store.TaskStore
	workers      store.WorkerStore
	connect      StoreConnector
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewRuntime creates a worker runtime. A zero pollInterval falls back to
// DefaultPollInterval; a nil logger falls back to slog.Default.
func NewRuntime(name string, plugin Plugin, tasks store.TaskStore, workers store.WorkerStore,
	connect StoreConnector, pollInterval time.Duration, logger *slog.Logger) *Runtime {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		name:         name,
		plugin:       plugin,
		tasks:        tasks,
		workers:      workers,
		connect:      connect,
		pollInterval: pollInterval,
		logger:       logger.With(slog.String("worker_name", name), slog.String("worker_type", plugin.Type())),
	}
}

// Descriptor builds the registry entry advertised for this worker.
func (r *Runtime) Descriptor() *domain.WorkerDescriptor {
	return &domain.WorkerDescriptor{
		Name:        r.name,
		Type:        r.plugin.Type(),
		Description: r.plugin.Description(),
		Extensions:  r.plugin.Extensions(),
		Status:      domain.WorkerStatusReady,
		Docs:        r.plugin.Docs(),
		Parameters:  r.plugin.Parameters(),
	}
}

// Register announces the worker in the registry. An existing registration
// under the same name is an error; the operator picks unique names.
func (r *Runtime) Register(ctx context.Context) error {
	if err := r.workers.Register(ctx, r.Descriptor()); err != nil {
		return fmt.Errorf("registering worker %q: %w", r.name, err)
	}
	r.logger.Info("worker registered", slog.Any("extensions", r.plugin.Extensions()))
	return nil
}

// Unregister removes the worker from the registry. A missing registration
// is not an error; shutdown should be idempotent.
func (r *Runtime) Unregister(ctx context.Context) error {
	err := r.workers.Remove(ctx, r.name)
	if err != nil && !errors.Is(err, store.ErrWorkerNotFound) {
		return fmt.Errorf("unregistering worker %q: %w", r.name, err)
	}
	r.logger.Info("worker unregistered")
	return nil
}

// Run registers the worker and polls the queue until ctx is canceled.
// Claim and task failures are logged and absorbed so a transient store
// outage never kills the loop.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Register(ctx); err != nil {
		return err
	}

	r.logger.Info("worker loop started", slog.Duration("poll_interval", r.pollInterval))
	for {
		task, err := r.tasks.Claim(ctx, r.plugin.Type(), r.plugin.Extensions())
		switch {
		case err == nil:
			r.RunTask(ctx, task)
			continue
		case errors.Is(err, store.ErrNoMatch):
			// Queue is empty for this worker; wait before the next poll.
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		default:
			r.logger.Error("claiming task failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// RunTask executes one claimed task end to end: mark it started, lock the
// asset, run the transform, record the outcome on both the task and the
// asset metadata, and always release the lock this worker took.
func (r *Runtime) RunTask(ctx context.Context, task *domain.Task) {
	logger := r.logger.With(
		slog.String("task_id", task.ID.String()),
		slog.String("project_id", task.ProjectID),
		slog.String("asset_id", task.AssetID),
	)
	logger.Info("task claimed")

	if err := r.tasks.MarkStarted(ctx, task.ID, r.name); err != nil {
		logger.Error("marking task started failed", slog.String("error", err.Error()))
	}
	if err := r.workers.UpdateStatus(ctx, r.name, domain.WorkerStatusProcessing, ""); err != nil {
		logger.Error("updating worker status failed", slog.String("error", err.Error()))
	}

	procErr := r.process(ctx, task, logger)

	status := domain.TaskStatusDone
	errMsg := ""
	if procErr != nil {
		status = domain.TaskStatusError
		errMsg = procErr.Error()
		logger.Error("task failed", slog.String("error", errMsg))
	} else {
		logger.Info("task done")
	}
	if err := r.tasks.MarkFinished(ctx, task.ID, status, errMsg); err != nil {
		logger.Error("marking task finished failed", slog.String("error", err.Error()))
	}
	if err := r.workers.UpdateStatus(ctx, r.name, domain.WorkerStatusReady, ""); err != nil {
		logger.Error("updating worker status failed", slog.String("error", err.Error()))
	}
}

// process performs the storage-facing part of a task. The returned error
// is what ends up in the task's error field.
func (r *Runtime) process(ctx context.Context, task *domain.Task, logger *slog.Logger) (err error) {
	if task.Credentials == nil {
		return fmt.Errorf("task %s carries no store credentials", task.ID)
	}
	assets, err := r.connect(task.Credentials, logger)
	if err != nil {
		return fmt.Errorf("connecting to store %q: %w", task.Credentials.Name, err)
	}

	meta, err := assets.GetAssetMeta(ctx, task.ProjectID, task.AssetID)
	if err != nil {
		return fmt.Errorf("loading asset meta: %w", err)
	}

	if err := assets.LockAsset(ctx, task.ProjectID, meta, r.name); err != nil {
		// Held by another worker; the asset is untouched, only the task fails.
		return err
	}
	defer func() {
		if unlockErr := assets.UnlockAsset(ctx, task.ProjectID, meta, r.name); unlockErr != nil {
			logger.Error("releasing asset lock failed", slog.String("error", unlockErr.Error()))
			if err == nil {
				err = unlockErr
			}
		}
	}()

	if statusErr := assets.UpdateAssetStatus(ctx, task.ProjectID, meta, domain.TaskStatusProcessing, ""); statusErr != nil {
		return fmt.Errorf("marking asset processing: %w", statusErr)
	}

	filename, err := resolveFilename(task, meta)
	if err != nil {
		recordAssetError(ctx, assets, task.ProjectID, meta, err, logger)
		return err
	}

	objectPath := meta.WorkerRoot() + filename
	if procErr := r.plugin.Process(ctx, assets, task.ProjectID, objectPath, meta, task.TaskOptions); procErr != nil {
		recordAssetError(ctx, assets, task.ProjectID, meta, procErr, logger)
		return procErr
	}

	if statusErr := assets.UpdateAssetStatus(ctx, task.ProjectID, meta, domain.TaskStatusDone, ""); statusErr != nil {
		return fmt.Errorf("marking asset done: %w", statusErr)
	}
	return nil
}

// resolveFilename picks the file the plugin should operate on: an explicit
// task option wins, then the filename captured at scheduling time, then
// whatever the asset metadata currently names.
func resolveFilename(task *domain.Task, meta *domain.AssetMeta) (string, error) {
	if name := task.TaskOptions["filename"]; name != "" {
		return name, nil
	}
	if task.Filename != "" {
		return task.Filename, nil
	}
	if meta.Filename != "" {
		return meta.Filename, nil
	}
	return "", fmt.Errorf("%w: filename", domain.ErrMissingParameter)
}

func recordAssetError(ctx context.Context, assets AssetStore, projectID string, meta *domain.AssetMeta, cause error, logger *slog.Logger) {
	if err := assets.UpdateAssetStatus(ctx, projectID, meta, domain.TaskStatusError, cause.Error()); err != nil {
		logger.Error("recording asset error failed", slog.String("error", err.Error()))
	}
}
