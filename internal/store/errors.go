package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. "Not found" is a normal return variant here, not a fault.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g. a worker with an already-registered name).
	ErrDuplicate = errors.New("entity already exists")

	// ErrNoMatch is returned by Claim when no NEW task matches the worker's
	// type and extension filter. The poll loop sleeps and retries on it.
	ErrNoMatch = errors.New("no matching task")

	// Entity-specific variants, checked with errors.Is against the generic
	// sentinel above.

	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrWorkerNotFound indicates the requested worker is not registered.
	ErrWorkerNotFound = fmt.Errorf("%w: worker", ErrNotFound)

	// ErrWorkerExists indicates a worker with the given name is already
	// registered.
	ErrWorkerExists = fmt.Errorf("%w: worker name", ErrDuplicate)

	// ErrAssetNotFound indicates the requested asset (or its metadata
	// document) does not exist in the object store.
	ErrAssetNotFound = fmt.Errorf("%w: asset", ErrNotFound)

	// ErrProjectNotFound indicates the project bucket does not exist.
	ErrProjectNotFound = fmt.Errorf("%w: project", ErrNotFound)
)

// IsNotFoundError checks whether the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks whether the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
