package store

import (
	"context"

	"github.com/ovehub/asset-manager/internal/domain"
)

// WorkerStore defines the interface for the persistent worker registry.
type WorkerStore interface {
	// Register inserts a worker descriptor.
	// Returns ErrWorkerExists if the name is already registered.
	Register(ctx context.Context, worker *domain.WorkerDescriptor) error

	// Remove deletes a worker by name.
	// Returns ErrWorkerNotFound if no such worker is registered.
	Remove(ctx context.Context, name string) error

	// List returns registered workers, optionally filtered by name.
	// An empty name returns every worker.
	List(ctx context.Context, name string) ([]*domain.WorkerDescriptor, error)

	// UpdateStatus records a worker's self-reported status and optional
	// error message. Returns ErrWorkerNotFound if the worker is absent.
	UpdateStatus(ctx context.Context, name string, status domain.WorkerStatus, errMsg string) error
}
