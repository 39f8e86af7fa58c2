// Package worker implements the worker runtime: the polling loop that
// claims tasks from the queue, locks the target asset, runs the
// worker-type-specific transform and reports results.
package worker

import (
	"context"
	"fmt"
	"sort"

	"github.com/ovehub/asset-manager/internal/domain"
)

// AssetStore is the slice of the storage layer a worker needs. The object
// store client implements it; tests substitute fakes.
type AssetStore interface {
	GetAssetMeta(ctx context.Context, projectID, assetID string) (*domain.AssetMeta, error)
	SetAssetMeta(ctx context.Context, projectID, assetID string, meta *domain.AssetMeta) error
	LockAsset(ctx context.Context, projectID string, meta *domain.AssetMeta, workerName string) error
	UnlockAsset(ctx context.Context, projectID string, meta *domain.AssetMeta, workerName string) error
	UpdateAssetStatus(ctx context.Context, projectID string, meta *domain.AssetMeta, status domain.TaskStatus, errMsg string) error
	DownloadAsset(ctx context.Context, projectID, assetID, objectPath, localPath string) error
	UploadAssetFolder(ctx context.Context, projectID string, meta *domain.AssetMeta, folder, workerName string) error
}

// Plugin is the contract of one worker type. Implementations perform the
// actual transform; everything around it (claiming, locking, status
// reporting) is the runtime's job.
type Plugin interface {
	// Type is the worker type used for claim matching.
	Type() string

	// Extensions lists the accepted file suffixes, lowercased with dots.
	Extensions() []string

	// Description is a human-readable summary of the transform.
	Description() string

	// Docs names the worker's documentation document.
	Docs() string

	// Parameters describes the worker-specific task options.
	Parameters() map[string]string

	// Process runs the transform. filename is the object path of the input
	// inside the asset folder (version-prefixed). Any returned error is
	// recorded on both the task and the asset metadata by the runtime.
	Process(ctx context.Context, assets AssetStore, projectID, filename string,
		meta *domain.AssetMeta, options map[string]string) error
}

// Registry maps worker types to plugin factories. It replaces dynamic
// class-path imports with explicit registration and is populated at
// startup, then only read.
type Registry struct {
	factories map[string]func() Plugin
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]func() Plugin)}
}

// Register adds a factory for the worker type it produces. Registering the
// same type twice is an error.
func (r *Registry) Register(factory func() Plugin) error {
	workerType := factory().Type()
	if _, exists := r.factories[workerType]; exists {
		return fmt.Errorf("plugin type %q already registered", workerType)
	}
	r.factories[workerType] = factory
	return nil
}

// New builds a plugin for the given worker type.
func (r *Registry) New(workerType string) (Plugin, error) {
	factory, ok := r.factories[workerType]
	if !ok {
		return nil, fmt.Errorf("unknown plugin type %q (known: %v)", workerType, r.Types())
	}
	return factory(), nil
}

// Types lists the registered worker types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
