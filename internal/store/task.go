package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/ovehub/asset-manager/internal/domain"
)

// TaskStore defines the interface for the persistent task queue.
type TaskStore interface {
	// Create inserts a task. Repeated scheduling of the same asset produces
	// independent tasks; there is no uniqueness constraint.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns all tasks, credentials included; callers are responsible
	// for access filtering and credential stripping.
	List(ctx context.Context) ([]*domain.Task, error)

	// Claim atomically transitions the best-matching NEW task to PROCESSING
	// and returns it. Matching tasks have the given worker type and an
	// extension in the given set; the best match is the highest priority,
	// most recently created one. At most one concurrent caller can receive
	// any given task. Returns ErrNoMatch when nothing qualifies.
	Claim(ctx context.Context, workerType string, extensions []string) (*domain.Task, error)

	// MarkStarted records the claiming worker's name and the start time on
	// a freshly claimed task.
	MarkStarted(ctx context.Context, id uuid.UUID, workerName string) error

	// MarkFinished sets the terminal status, the end time and an optional
	// error message.
	MarkFinished(ctx context.Context, id uuid.UUID, status domain.TaskStatus, errMsg string) error

	// Cancel marks a task CANCELED with startTime == endTime == now.
	// Returns ErrTaskNotFound if the task does not exist.
	Cancel(ctx context.Context, id uuid.UUID) error

	// Reset returns a task to NEW, clearing start/end times and any error,
	// so it can be claimed again. Idempotent on tasks already NEW.
	// Returns ErrTaskNotFound if the task does not exist.
	Reset(ctx context.Context, id uuid.UUID) error
}
