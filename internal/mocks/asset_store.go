package mocks

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/store"
)

// FakeAssetStore is an in-memory stand-in for the object store client. It
// satisfies the worker runtime's AssetStore interface.
type FakeAssetStore struct {
	mu    sync.Mutex
	metas map[string]*domain.AssetMeta

	// Downloads holds the content written on DownloadAsset calls.
	Downloads []byte

	// UploadedFolders records the (projectID, workerName) pairs passed to
	// UploadAssetFolder.
	UploadedFolders []string

	// DownloadErr, when set, is returned by DownloadAsset.
	DownloadErr error
}

// NewFakeAssetStore creates an empty in-memory asset store.
func NewFakeAssetStore() *FakeAssetStore {
	return &FakeAssetStore{metas: make(map[string]*domain.AssetMeta)}
}

func assetKey(projectID, assetID string) string {
	return projectID + "/" + assetID
}

// PutMeta seeds an asset metadata document.
func (s *FakeAssetStore) PutMeta(projectID string, meta *domain.AssetMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *meta
	s.metas[assetKey(projectID, meta.ID)] = &copied
}

// Meta returns the currently stored metadata for inspection.
func (s *FakeAssetStore) Meta(projectID, assetID string) *domain.AssetMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metas[assetKey(projectID, assetID)]
	if !ok {
		return nil
	}
	copied := *meta
	return &copied
}

// GetAssetMeta returns a copy of the stored metadata.
func (s *FakeAssetStore) GetAssetMeta(_ context.Context, projectID, assetID string) (*domain.AssetMeta, error) {
	meta := s.Meta(projectID, assetID)
	if meta == nil {
		return nil, store.ErrAssetNotFound
	}
	return meta, nil
}

// SetAssetMeta stores a copy of the metadata.
func (s *FakeAssetStore) SetAssetMeta(_ context.Context, projectID, assetID string, meta *domain.AssetMeta) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *meta
	s.metas[assetKey(projectID, assetID)] = &copied
	return nil
}

// LockAsset mirrors the object store client's lock semantics.
func (s *FakeAssetStore) LockAsset(ctx context.Context, projectID string, meta *domain.AssetMeta, workerName string) error {
	if err := meta.AcquireLock(workerName); err != nil {
		return err
	}
	return s.SetAssetMeta(ctx, projectID, meta.ID, meta)
}

// UnlockAsset mirrors the object store client's unlock semantics.
func (s *FakeAssetStore) UnlockAsset(ctx context.Context, projectID string, meta *domain.AssetMeta, workerName string) error {
	meta.ReleaseLock(workerName)
	return s.SetAssetMeta(ctx, projectID, meta.ID, meta)
}

// UpdateAssetStatus records the processing status on the metadata.
func (s *FakeAssetStore) UpdateAssetStatus(ctx context.Context, projectID string, meta *domain.AssetMeta, status domain.TaskStatus, errMsg string) error {
	meta.ProcessingStatus = string(status)
	meta.ProcessingError = errMsg
	return s.SetAssetMeta(ctx, projectID, meta.ID, meta)
}

// DownloadAsset writes the configured content to localPath.
func (s *FakeAssetStore) DownloadAsset(_ context.Context, projectID, assetID, objectPath, localPath string) error {
	if s.DownloadErr != nil {
		return s.DownloadErr
	}
	return os.WriteFile(localPath, s.Downloads, 0o600)
}

// UploadAssetFolder records the upload without moving bytes.
func (s *FakeAssetStore) UploadAssetFolder(_ context.Context, projectID string, meta *domain.AssetMeta, folder, workerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UploadedFolders = append(s.UploadedFolders, fmt.Sprintf("%s/%s", projectID, workerName))
	return nil
}

// FakeAccessChecker grants access based on a fixed project allow-list, or
// everything when AllowAll is set.
type FakeAccessChecker struct {
	AllowAll bool
	Projects map[string]bool
}

// HasAccess implements the scheduler's AccessChecker.
func (f *FakeAccessChecker) HasAccess(_ context.Context, projectID string, _ []string, isAdmin bool) bool {
	if f.AllowAll || isAdmin {
		return true
	}
	return f.Projects[projectID]
}
