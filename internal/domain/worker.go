package domain

import (
	"fmt"
	"strings"
)

// WorkerStatus represents the self-reported state of a worker.
type WorkerStatus string

// Possible worker status values.
const (
	WorkerStatusReady      WorkerStatus = "READY"
	WorkerStatusProcessing WorkerStatus = "PROCESSING"
	WorkerStatusError      WorkerStatus = "ERROR"
)

// ParseWorkerStatus converts a stored status string back into a WorkerStatus.
func ParseWorkerStatus(s string) (WorkerStatus, error) {
	switch status := WorkerStatus(s); status {
	case WorkerStatusReady, WorkerStatusProcessing, WorkerStatusError:
		return status, nil
	default:
		return "", fmt.Errorf("%w: worker status %q", ErrInvalidStatus, s)
	}
}

// WorkerDescriptor describes one logical worker capability in the registry.
// Name is unique; Type and Extensions drive claim matching.
type WorkerDescriptor struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Extensions  []string          `json:"extensions"`
	Status      WorkerStatus      `json:"status"`
	Docs        string            `json:"docs"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Error       string            `json:"error,omitempty"`

	// Callback endpoints used only by the legacy push dispatcher.
	Callback       string `json:"callback,omitempty"`
	StatusCallback string `json:"status_callback,omitempty"`
}

// Accepts reports whether the worker's declared extensions include the given
// file suffix. Matching is case-insensitive.
func (w *WorkerDescriptor) Accepts(extension string) bool {
	ext := strings.ToLower(extension)
	for _, e := range w.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Validate checks the required descriptor fields.
func (w *WorkerDescriptor) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name", ErrMissingParameter)
	}
	if strings.TrimSpace(w.Type) == "" {
		return fmt.Errorf("%w: type", ErrMissingParameter)
	}
	if len(w.Extensions) == 0 {
		return fmt.Errorf("%w: extensions", ErrMissingParameter)
	}
	if _, err := ParseWorkerStatus(string(w.Status)); err != nil {
		return err
	}
	return nil
}
