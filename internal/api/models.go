package api

import "github.com/ovehub/asset-manager/internal/domain"

// ScheduleTaskRequest is the payload of POST /api/workers/queue.
type ScheduleTaskRequest struct {
	StoreID    string            `json:"store_id"    validate:"required"`
	ProjectID  string            `json:"project_id"  validate:"required"`
	AssetID    string            `json:"asset_id"    validate:"required"`
	WorkerType string            `json:"worker_type" validate:"required"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Priority   int               `json:"priority"`
}

// TaskActionRequest is the payload of DELETE and PATCH /api/workers/queue.
type TaskActionRequest struct {
	TaskID string `json:"task_id" validate:"required,uuid"`
}

// RegisterWorkerRequest is the payload of POST /api/workers.
type RegisterWorkerRequest struct {
	Name        string            `json:"name"        validate:"required"`
	Type        string            `json:"type"        validate:"required"`
	Description string            `json:"description,omitempty"`
	Extensions  []string          `json:"extensions"  validate:"required,min=1"`
	Docs        string            `json:"docs,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// RemoveWorkerRequest is the payload of DELETE /api/workers.
type RemoveWorkerRequest struct {
	Name string `json:"name" validate:"required"`
}

// WorkerStatusRequest is the payload of PATCH /api/workers: a worker
// self-reporting its status.
type WorkerStatusRequest struct {
	Name     string `json:"name"   validate:"required"`
	Status   string `json:"status" validate:"required"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// TaskListResponse wraps GET /api/workers/queue results.
type TaskListResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

// WorkerListResponse wraps GET /api/workers results.
type WorkerListResponse struct {
	Workers []*domain.WorkerDescriptor `json:"workers"`
}

// ActionResponse reports whether a cancel/reset touched a task.
type ActionResponse struct {
	Updated bool `json:"updated"`
}
