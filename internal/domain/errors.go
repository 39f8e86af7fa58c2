// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrMissingParameter is returned when a required field is absent.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrWorkerLock is returned when an asset is already locked by a
	// different worker. The holder's name is kept in AssetMeta.Worker.
	ErrWorkerLock = errors.New("asset locked by another worker")

	// ErrWorkerCallback is returned by the push dispatcher when a worker's
	// declared callback endpoint is unreachable during registration.
	ErrWorkerCallback = errors.New("worker callback unreachable")

	// ErrWorkerUnavailable is returned by the push dispatcher when no
	// registered worker matches a processing request.
	ErrWorkerUnavailable = errors.New("no worker available")

	// ErrInvalidStatus is returned when a task or worker status string is
	// not one of the known values.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
