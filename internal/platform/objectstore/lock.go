package objectstore

import (
	"context"
	"log/slog"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/logger"
)

// LockAsset takes the asset lock for the named worker and persists it.
// Fails with domain.ErrWorkerLock (wrapped) when another worker holds it.
//
// This is not a fenced distributed lock: a worker that crashes between lock
// and unlock leaves the asset locked until an operator resets the task and
// clears the lock. That limitation is deliberate and documented.
func (c *Client) LockAsset(ctx context.Context, projectID string, meta *domain.AssetMeta, workerName string) error {
	if err := meta.AcquireLock(workerName); err != nil {
		return err
	}
	return c.SetAssetMeta(ctx, projectID, meta.ID, meta)
}

// UnlockAsset clears the asset lock if the named worker still holds it and
// persists the result. Unlocking someone else's lock is a no-op, but the
// metadata is persisted regardless so status fields written by the caller
// survive.
func (c *Client) UnlockAsset(ctx context.Context, projectID string, meta *domain.AssetMeta, workerName string) error {
	meta.ReleaseLock(workerName)
	return c.SetAssetMeta(ctx, projectID, meta.ID, meta)
}

// UpdateAssetStatus records the processing status (and optional error) on
// the asset metadata and persists it.
func (c *Client) UpdateAssetStatus(ctx context.Context, projectID string, meta *domain.AssetMeta, status domain.TaskStatus, errMsg string) error {
	log := logger.FromContextOrDefault(ctx, c.logger)

	meta.ProcessingStatus = string(status)
	meta.ProcessingError = errMsg
	if err := c.SetAssetMeta(ctx, projectID, meta.ID, meta); err != nil {
		log.Error("failed to update asset processing status",
			slog.String("project", projectID),
			slog.String("asset", meta.ID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
