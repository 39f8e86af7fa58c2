package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/logger"
	"github.com/ovehub/asset-manager/internal/store"
)

// Dispatcher is the legacy push-based scheduling variant, kept as an
// alternative interface. Workers register HTTP callbacks; jobs are POSTed
// directly to a matching, reachable worker instead of queued. It offers no
// durability across restarts, no priority and no claim atomicity (the probe
// and the dispatch can race), which is why the queue-based scheduler is
// canonical.
type Dispatcher struct {
	client *http.Client
	logger *slog.Logger

	mu      sync.RWMutex
	workers map[string]*domain.WorkerDescriptor
}

// probeTimeout bounds every reachability probe and job dispatch request.
const probeTimeout = 5 * time.Second

// NewDispatcher creates a push dispatcher with an empty registry. If logger
// is nil, the default logger is used.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client:  &http.Client{Timeout: probeTimeout},
		logger:  logger.With(slog.String("component", "dispatcher")),
		workers: make(map[string]*domain.WorkerDescriptor),
	}
}

// RegisterCallback adds a worker to the in-memory registry after probing
// its callback endpoint. An unreachable callback fails registration with
// domain.ErrWorkerCallback; a duplicate name fails with
// store.ErrWorkerExists.
func (d *Dispatcher) RegisterCallback(ctx context.Context, worker *domain.WorkerDescriptor) error {
	if err := worker.Validate(); err != nil {
		return err
	}
	if worker.Callback == "" {
		return fmt.Errorf("%w: callback", domain.ErrMissingParameter)
	}
	if !d.reachable(ctx, worker.Callback) {
		return fmt.Errorf("%w: %s", domain.ErrWorkerCallback, worker.Callback)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.workers[worker.Name]; exists {
		return store.ErrWorkerExists
	}
	d.workers[worker.Name] = worker

	d.logger.Info("callback worker registered",
		slog.String("worker", worker.Name),
		slog.String("callback", worker.Callback))
	return nil
}

// UnregisterCallback removes a worker from the registry.
// Returns store.ErrWorkerNotFound when the name is absent.
func (d *Dispatcher) UnregisterCallback(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.workers[name]; !exists {
		return store.ErrWorkerNotFound
	}
	delete(d.workers, name)
	return nil
}

// Workers returns a snapshot of the registered callback workers.
func (d *Dispatcher) Workers() []*domain.WorkerDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := make([]*domain.WorkerDescriptor, 0, len(d.workers))
	for _, w := range d.workers {
		copied := *w
		list = append(list, &copied)
	}
	return list
}

// pushJob is the payload POSTed to a worker's callback.
type pushJob struct {
	StoreConfig *domain.StoreConfig `json:"store_config"`
	ProjectID   string              `json:"project_id"`
	AssetID     string              `json:"asset_id"`
	TaskOptions map[string]string   `json:"task_options,omitempty"`
}

// ScheduleProcess dispatches a job to the first reachable READY worker
// whose extensions match. Candidates with equal standing are shuffled so
// load spreads across them. Returns domain.ErrWorkerUnavailable when no
// registered worker matches or none responds.
func (d *Dispatcher) ScheduleProcess(ctx context.Context, storeCfg *domain.StoreConfig,
	projectID, assetID, extension string, options map[string]string) (string, error) {

	log := logger.FromContextOrDefault(ctx, d.logger)

	d.mu.RLock()
	var candidates []*domain.WorkerDescriptor
	for _, w := range d.workers {
		if w.Status == domain.WorkerStatusReady && w.Accepts(extension) {
			candidates = append(candidates, w)
		}
	}
	d.mu.RUnlock()

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: extension %s", domain.ErrWorkerUnavailable, extension)
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	payload, err := json.Marshal(pushJob{
		StoreConfig: storeCfg,
		ProjectID:   projectID,
		AssetID:     assetID,
		TaskOptions: options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode job payload: %w", err)
	}

	for _, candidate := range candidates {
		if !d.reachable(ctx, candidate.Callback) {
			log.Warn("callback worker unreachable, trying next",
				slog.String("worker", candidate.Name))
			continue
		}
		if err := d.post(ctx, candidate.Callback, payload); err != nil {
			log.Warn("job dispatch failed, trying next",
				slog.String("worker", candidate.Name),
				slog.String("error", err.Error()))
			continue
		}

		d.mu.Lock()
		candidate.Status = domain.WorkerStatusProcessing
		d.mu.Unlock()

		log.Info("job dispatched",
			slog.String("worker", candidate.Name),
			slog.String("project", projectID),
			slog.String("asset", assetID))
		return candidate.Name, nil
	}

	return "", fmt.Errorf("%w: no reachable worker for extension %s", domain.ErrWorkerUnavailable, extension)
}

// reachable probes a callback endpoint with a bounded HEAD request.
func (d *Dispatcher) reachable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (d *Dispatcher) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
