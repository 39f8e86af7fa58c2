package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/store"
)

// FakeWorkerStore is an in-memory store.WorkerStore.
type FakeWorkerStore struct {
	mu      sync.Mutex
	workers map[string]*domain.WorkerDescriptor
}

// NewFakeWorkerStore creates an empty in-memory worker registry.
func NewFakeWorkerStore() *FakeWorkerStore {
	return &FakeWorkerStore{workers: make(map[string]*domain.WorkerDescriptor)}
}

var _ store.WorkerStore = (*FakeWorkerStore)(nil)

// Register implements store.WorkerStore.Register.
func (s *FakeWorkerStore) Register(_ context.Context, worker *domain.WorkerDescriptor) error {
	if err := worker.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workers[worker.Name]; exists {
		return store.ErrWorkerExists
	}
	copied := *worker
	s.workers[worker.Name] = &copied
	return nil
}

// Remove implements store.WorkerStore.Remove.
func (s *FakeWorkerStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workers[name]; !exists {
		return store.ErrWorkerNotFound
	}
	delete(s.workers, name)
	return nil
}

// List implements store.WorkerStore.List.
func (s *FakeWorkerStore) List(_ context.Context, name string) ([]*domain.WorkerDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*domain.WorkerDescriptor
	for _, w := range s.workers {
		if name != "" && w.Name != name {
			continue
		}
		copied := *w
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// UpdateStatus implements store.WorkerStore.UpdateStatus.
func (s *FakeWorkerStore) UpdateStatus(_ context.Context, name string, status domain.WorkerStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	worker, exists := s.workers[name]
	if !exists {
		return store.ErrWorkerNotFound
	}
	worker.Status = status
	worker.Error = errMsg
	return nil
}
