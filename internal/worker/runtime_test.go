package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/mocks"
	"github.com/ovehub/asset-manager/internal/store"
	"github.com/ovehub/asset-manager/internal/worker"
)

// stubPlugin is a minimal plugin whose Process behavior tests control.
type stubPlugin struct {
	workerType string
	extensions []string
	process    func(ctx context.Context, assets worker.AssetStore, projectID, filename string,
		meta *domain.AssetMeta, options map[string]string) error

	calls []string
}

func (p *stubPlugin) Type() string                  { return p.workerType }
func (p *stubPlugin) Extensions() []string          { return p.extensions }
func (p *stubPlugin) Description() string           { return "test plugin" }
func (p *stubPlugin) Docs() string                  { return "TEST.md" }
func (p *stubPlugin) Parameters() map[string]string { return nil }

func (p *stubPlugin) Process(ctx context.Context, assets worker.AssetStore, projectID, filename string,
	meta *domain.AssetMeta, options map[string]string) error {
	p.calls = append(p.calls, filename)
	if p.process != nil {
		return p.process(ctx, assets, projectID, filename, meta, options)
	}
	return nil
}

func newTestRuntime(t *testing.T, plugin *stubPlugin, tasks *mocks.FakeTaskStore,
	workers *mocks.FakeWorkerStore, assets *mocks.FakeAssetStore) *worker.Runtime {
	t.Helper()
	connect := func(cfg *domain.StoreConfig, _ *slog.Logger) (worker.AssetStore, error) {
		return assets, nil
	}
	return worker.NewRuntime("worker-1", plugin, tasks, workers, connect,
		time.Millisecond, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func seedTask(t *testing.T, tasks *mocks.FakeTaskStore, options map[string]string) *domain.Task {
	t.Helper()
	task := domain.NewTask("default", "project-a", "asset-1", "extract", "alice",
		"archive.zip", options, &domain.StoreConfig{Name: "default"}, 0)
	require.NoError(t, tasks.Create(context.Background(), task))
	return task
}

func seedAsset(assets *mocks.FakeAssetStore) *domain.AssetMeta {
	meta := domain.NewAssetMeta("asset-1", "Archive", "project-a")
	meta.Filename = "archive.zip"
	meta.Upload()
	assets.PutMeta("project-a", meta)
	return meta
}

func TestRunTaskHappyPath(t *testing.T) {
	ctx := context.Background()
	tasks := mocks.NewFakeTaskStore()
	workers := mocks.NewFakeWorkerStore()
	assets := mocks.NewFakeAssetStore()
	plugin := &stubPlugin{workerType: "extract", extensions: []string{".zip"}}

	rt := newTestRuntime(t, plugin, tasks, workers, assets)
	require.NoError(t, rt.Register(ctx))
	task := seedTask(t, tasks, nil)
	seedAsset(assets)

	claimed, err := tasks.Claim(ctx, "extract", []string{".zip"})
	require.NoError(t, err)
	rt.RunTask(ctx, claimed)

	// Plugin saw the version-prefixed object path.
	require.Len(t, plugin.calls, 1)
	assert.Equal(t, "1/archive.zip", plugin.calls[0])

	finished, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, finished.Status)
	assert.Empty(t, finished.Error)
	assert.Equal(t, "worker-1", finished.WorkerName)
	require.NotNil(t, finished.StartTime)
	require.NotNil(t, finished.EndTime)

	meta := assets.Meta("project-a", "asset-1")
	assert.Equal(t, string(domain.TaskStatusDone), meta.ProcessingStatus)
	assert.False(t, meta.Locked(), "lock must be released after processing")

	registered, err := workers.List(ctx, "worker-1")
	require.NoError(t, err)
	require.Len(t, registered, 1)
	assert.Equal(t, domain.WorkerStatusReady, registered[0].Status)
}

func TestRunTaskPluginErrorRecordedOnTaskAndAsset(t *testing.T) {
	ctx := context.Background()
	tasks := mocks.NewFakeTaskStore()
	workers := mocks.NewFakeWorkerStore()
	assets := mocks.NewFakeAssetStore()
	plugin := &stubPlugin{
		workerType: "extract",
		extensions: []string{".zip"},
		process: func(context.Context, worker.AssetStore, string, string, *domain.AssetMeta, map[string]string) error {
			return errors.New("corrupt archive")
		},
	}

	rt := newTestRuntime(t, plugin, tasks, workers, assets)
	require.NoError(t, rt.Register(ctx))
	task := seedTask(t, tasks, nil)
	seedAsset(assets)

	claimed, err := tasks.Claim(ctx, "extract", []string{".zip"})
	require.NoError(t, err)
	rt.RunTask(ctx, claimed)

	finished, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusError, finished.Status)
	assert.Contains(t, finished.Error, "corrupt archive")

	meta := assets.Meta("project-a", "asset-1")
	assert.Equal(t, string(domain.TaskStatusError), meta.ProcessingStatus)
	assert.Contains(t, meta.ProcessingError, "corrupt archive")
	assert.False(t, meta.Locked())
}

func TestRunTaskLockedAssetFailsTaskOnly(t *testing.T) {
	ctx := context.Background()
	tasks := mocks.NewFakeTaskStore()
	workers := mocks.NewFakeWorkerStore()
	assets := mocks.NewFakeAssetStore()
	plugin := &stubPlugin{workerType: "extract", extensions: []string{".zip"}}

	rt := newTestRuntime(t, plugin, tasks, workers, assets)
	require.NoError(t, rt.Register(ctx))
	task := seedTask(t, tasks, nil)
	meta := seedAsset(assets)
	meta.Worker = "other-worker"
	assets.PutMeta("project-a", meta)

	claimed, err := tasks.Claim(ctx, "extract", []string{".zip"})
	require.NoError(t, err)
	rt.RunTask(ctx, claimed)

	assert.Empty(t, plugin.calls, "plugin must not run on a locked asset")

	finished, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusError, finished.Status)
	assert.Contains(t, finished.Error, domain.ErrWorkerLock.Error())

	stored := assets.Meta("project-a", "asset-1")
	assert.Equal(t, "other-worker", stored.Worker, "foreign lock must stay in place")
	assert.Empty(t, stored.ProcessingError)
}

func TestRunTaskMissingFilename(t *testing.T) {
	ctx := context.Background()
	tasks := mocks.NewFakeTaskStore()
	workers := mocks.NewFakeWorkerStore()
	assets := mocks.NewFakeAssetStore()
	plugin := &stubPlugin{workerType: "extract", extensions: []string{".zip"}}

	rt := newTestRuntime(t, plugin, tasks, workers, assets)
	require.NoError(t, rt.Register(ctx))

	task := domain.NewTask("default", "project-a", "asset-1", "extract", "alice",
		"", nil, &domain.StoreConfig{Name: "default"}, 0)
	task.Extension = ".zip"
	require.NoError(t, tasks.Create(ctx, task))

	meta := domain.NewAssetMeta("asset-1", "Archive", "project-a")
	assets.PutMeta("project-a", meta)

	claimed, err := tasks.Claim(ctx, "extract", []string{".zip"})
	require.NoError(t, err)
	rt.RunTask(ctx, claimed)

	finished, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusError, finished.Status)
	assert.Contains(t, finished.Error, "filename")
	assert.False(t, assets.Meta("project-a", "asset-1").Locked())
}

func TestRunTaskFilenameOptionOverridesMeta(t *testing.T) {
	ctx := context.Background()
	tasks := mocks.NewFakeTaskStore()
	workers := mocks.NewFakeWorkerStore()
	assets := mocks.NewFakeAssetStore()
	plugin := &stubPlugin{workerType: "extract", extensions: []string{".zip"}}

	rt := newTestRuntime(t, plugin, tasks, workers, assets)
	require.NoError(t, rt.Register(ctx))
	seedTask(t, tasks, map[string]string{"filename": "nested/other.zip"})
	seedAsset(assets)

	claimed, err := tasks.Claim(ctx, "extract", []string{".zip"})
	require.NoError(t, err)
	rt.RunTask(ctx, claimed)

	require.Len(t, plugin.calls, 1)
	assert.Equal(t, "1/nested/other.zip", plugin.calls[0])
}

func TestRunRegistersAndStopsOnCancel(t *testing.T) {
	tasks := mocks.NewFakeTaskStore()
	workers := mocks.NewFakeWorkerStore()
	assets := mocks.NewFakeAssetStore()
	plugin := &stubPlugin{workerType: "extract", extensions: []string{".zip"}}

	rt := newTestRuntime(t, plugin, tasks, workers, assets)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	// Wait until the registration lands, then cancel the loop.
	require.Eventually(t, func() bool {
		registered, err := workers.List(context.Background(), "worker-1")
		return err == nil && len(registered) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker loop did not stop on cancel")
	}

	require.NoError(t, rt.Unregister(context.Background()))
	registered, err := workers.List(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Empty(t, registered)

	// Unregister is idempotent.
	require.NoError(t, rt.Unregister(context.Background()))
}

func TestRunProcessesQueuedTask(t *testing.T) {
	tasks := mocks.NewFakeTaskStore()
	workers := mocks.NewFakeWorkerStore()
	assets := mocks.NewFakeAssetStore()
	plugin := &stubPlugin{workerType: "extract", extensions: []string{".zip"}}

	rt := newTestRuntime(t, plugin, tasks, workers, assets)
	task := seedTask(t, tasks, nil)
	seedAsset(assets)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	require.Eventually(t, func() bool {
		finished, err := tasks.GetByID(context.Background(), task.ID)
		return err == nil && finished.Status == domain.TaskStatusDone
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker loop did not stop on cancel")
	}
}

func TestConcurrentClaimProcessesTaskOnce(t *testing.T) {
	ctx := context.Background()
	tasks := mocks.NewFakeTaskStore()
	seedTask(t, tasks, nil)

	const pollers = 8
	claims := make(chan *domain.Task, pollers)
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := tasks.Claim(ctx, "extract", []string{".zip"})
			if err == nil {
				claims <- task
			} else {
				assert.ErrorIs(t, err, store.ErrNoMatch)
			}
		}()
	}
	wg.Wait()
	close(claims)

	assert.Len(t, claims, 1, "exactly one poller may win the claim")
}

func TestRegistryResolvesByType(t *testing.T) {
	registry := worker.NewRegistry()
	require.NoError(t, registry.Register(func() worker.Plugin {
		return &stubPlugin{workerType: "extract", extensions: []string{".zip"}}
	}))

	plugin, err := registry.New("extract")
	require.NoError(t, err)
	assert.Equal(t, "extract", plugin.Type())

	_, err = registry.New("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")

	err = registry.Register(func() worker.Plugin {
		return &stubPlugin{workerType: "extract"}
	})
	require.Error(t, err)
	assert.Equal(t, []string{"extract"}, registry.Types())
}

// Ensure the production fakes remain structurally compatible with the
// runtime's dependencies.
var (
	_ store.TaskStore   = (*mocks.FakeTaskStore)(nil)
	_ store.WorkerStore = (*mocks.FakeWorkerStore)(nil)
	_ worker.AssetStore = (*mocks.FakeAssetStore)(nil)
)
