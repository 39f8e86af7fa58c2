package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a queued task.
type TaskStatus string

// Possible task status values. Done, Error and Canceled are terminal.
const (
	TaskStatusNew        TaskStatus = "NEW"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCanceled   TaskStatus = "CANCELED"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusError      TaskStatus = "ERROR"
)

// ParseTaskStatus converts a stored status string back into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch status := TaskStatus(s); status {
	case TaskStatusNew, TaskStatusProcessing, TaskStatusCanceled, TaskStatusDone, TaskStatusError:
		return status, nil
	default:
		return "", fmt.Errorf("%w: task status %q", ErrInvalidStatus, s)
	}
}

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusError || s == TaskStatusCanceled
}

// StoreConfig is the object-store connection configuration carried inside a
// task so that workers stay store-agnostic. The scheduler copies it from its
// own configuration at scheduling time; list responses strip it.
type StoreConfig struct {
	Name      string `json:"name,omitempty"      mapstructure:"name"`
	Endpoint  string `json:"endpoint"            mapstructure:"endpoint"`
	AccessKey string `json:"access_key"          mapstructure:"access_key"`
	SecretKey string `json:"secret_key"          mapstructure:"secret_key"`
	Secure    bool   `json:"secure"              mapstructure:"secure"`
	ProxyURL  string `json:"proxy_url,omitempty" mapstructure:"proxy_url"`
}

// Task is one scheduled processing request. Created by the scheduler with
// status NEW; mutated by the worker runtime that claims it, or by the
// scheduler for cancel/reset while still NEW.
type Task struct {
	ID          uuid.UUID         `json:"id"`
	StoreID     string            `json:"store_id"`
	ProjectID   string            `json:"project_id"`
	AssetID     string            `json:"asset_id"`
	WorkerType  string            `json:"worker_type"`
	WorkerName  string            `json:"worker_name,omitempty"`
	Username    string            `json:"username"`
	Filename    string            `json:"filename,omitempty"`
	Extension   string            `json:"extension,omitempty"`
	TaskOptions map[string]string `json:"task_options,omitempty"`
	Credentials *StoreConfig      `json:"credentials,omitempty"`
	Priority    int               `json:"priority"`
	Status      TaskStatus        `json:"status"`
	Error       string            `json:"error,omitempty"`
	CreatedOn   time.Time         `json:"created_on"`
	StartTime   *time.Time        `json:"start_time,omitempty"`
	EndTime     *time.Time        `json:"end_time,omitempty"`
}

// NewTask creates a task in the NEW state. The extension is derived from the
// filename and lowercased so that claim matching is case-insensitive.
func NewTask(storeID, projectID, assetID, workerType, username, filename string,
	options map[string]string, credentials *StoreConfig, priority int) *Task {

	return &Task{
		ID:          uuid.New(),
		StoreID:     storeID,
		ProjectID:   projectID,
		AssetID:     assetID,
		WorkerType:  workerType,
		Username:    username,
		Filename:    filename,
		Extension:   ExtensionOf(filename),
		TaskOptions: options,
		Credentials: credentials,
		Priority:    priority,
		Status:      TaskStatusNew,
		CreatedOn:   time.Now().UTC(),
	}
}

// ExtensionOf returns the lowercased suffix of a filename, including the
// dot, or "" when the filename has none.
func ExtensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx:])
}

// StripCredentials returns a shallow copy of the task with the store
// credentials removed, safe to hand to API clients.
func (t *Task) StripCredentials() *Task {
	clean := *t
	clean.Credentials = nil
	return &clean
}

// Validate checks the required task fields.
func (t *Task) Validate() error {
	required := []struct {
		field, value string
	}{
		{"store_id", t.StoreID},
		{"project_id", t.ProjectID},
		{"asset_id", t.AssetID},
		{"worker_type", t.WorkerType},
		{"username", t.Username},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingParameter, r.field)
		}
	}
	if _, err := ParseTaskStatus(string(t.Status)); err != nil {
		return err
	}
	return nil
}
