// Package mocks provides in-memory fakes of the store interfaces for tests.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/store"
)

// FakeTaskStore is an in-memory store.TaskStore. The mutex makes Claim
// atomic, mirroring the at-most-one guarantee of the real queue.
type FakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

// NewFakeTaskStore creates an empty in-memory task store.
func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

var _ store.TaskStore = (*FakeTaskStore)(nil)

// Create implements store.TaskStore.Create.
func (s *FakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *FakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

// List implements store.TaskStore.List in consumption order.
func (s *FakeTaskStore) List(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		copied := *task
		list = append(list, &copied)
	}
	sortTasks(list)
	return list, nil
}

// Claim implements store.TaskStore.Claim with the same filter and ordering
// semantics as the real queue.
func (s *FakeTaskStore) Claim(_ context.Context, workerType string, extensions []string) (*domain.Task, error) {
	accepted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		accepted[strings.ToLower(ext)] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*domain.Task
	for _, task := range s.tasks {
		if task.Status == domain.TaskStatusNew && task.WorkerType == workerType &&
			accepted[strings.ToLower(task.Extension)] {
			candidates = append(candidates, task)
		}
	}
	if len(candidates) == 0 {
		return nil, store.ErrNoMatch
	}
	sortTasks(candidates)

	claimed := candidates[0]
	claimed.Status = domain.TaskStatusProcessing
	copied := *claimed
	return &copied, nil
}

// MarkStarted implements store.TaskStore.MarkStarted.
func (s *FakeTaskStore) MarkStarted(_ context.Context, id uuid.UUID, workerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	now := time.Now().UTC()
	task.WorkerName = workerName
	task.StartTime = &now
	return nil
}

// MarkFinished implements store.TaskStore.MarkFinished.
func (s *FakeTaskStore) MarkFinished(_ context.Context, id uuid.UUID, status domain.TaskStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	now := time.Now().UTC()
	task.Status = status
	task.Error = errMsg
	task.EndTime = &now
	return nil
}

// Cancel implements store.TaskStore.Cancel.
func (s *FakeTaskStore) Cancel(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	now := time.Now().UTC()
	task.Status = domain.TaskStatusCanceled
	task.StartTime = &now
	task.EndTime = &now
	return nil
}

// Reset implements store.TaskStore.Reset.
func (s *FakeTaskStore) Reset(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Status = domain.TaskStatusNew
	task.WorkerName = ""
	task.Error = ""
	task.StartTime = nil
	task.EndTime = nil
	return nil
}

// sortTasks orders tasks by priority descending, then createdOn descending.
func sortTasks(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].CreatedOn.After(tasks[j].CreatedOn)
	})
}
