// Package objectstore implements the versioned, bucket-per-project asset
// storage layer on any S3-compatible object store.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/logger"
	"github.com/ovehub/asset-manager/internal/store"
)

// Object names of the metadata documents inside a bucket. Asset metadata
// lives next to the asset's version folders; project metadata sits in the
// bucket root.
const (
	assetMetaObject   = ".ovemeta"
	projectMetaObject = ".ovemeta.project"
)

// Client wraps a minio connection to one object store. Workers build one
// per task from the credentials the task carries, so they stay agnostic of
// which store the scheduler uses.
type Client struct {
	mc     *minio.Client
	cfg    domain.StoreConfig
	logger *slog.Logger
}

// Connect opens a connection to the object store described by cfg. If
// logger is nil, the default logger is used.
func Connect(cfg *domain.StoreConfig, logger *slog.Logger) (*Client, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: store endpoint", domain.ErrMissingParameter)
	}
	if logger == nil {
		logger = slog.Default()
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to object store %s: %w", cfg.Endpoint, err)
	}

	return &Client{
		mc:     mc,
		cfg:    *cfg,
		logger: logger.With(slog.String("component", "objectstore")),
	}, nil
}

// Config returns the connection configuration this client was built from,
// which the scheduler copies into tasks.
func (c *Client) Config() domain.StoreConfig { return c.cfg }

// EnsureProject creates the project bucket when it does not exist yet.
func (c *Client) EnsureProject(ctx context.Context, projectID string) error {
	exists, err := c.mc.BucketExists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project bucket %s: %w", projectID, err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, projectID, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create project bucket %s: %w", projectID, err)
	}
	return nil
}

// GetAssetMeta retrieves and decodes an asset's metadata document.
// Returns store.ErrAssetNotFound when the asset has no metadata object.
func (c *Client) GetAssetMeta(ctx context.Context, projectID, assetID string) (*domain.AssetMeta, error) {
	raw, err := c.getObject(ctx, projectID, assetID+"/"+assetMetaObject)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset meta %s/%s: %w", projectID, assetID, err)
	}

	var meta domain.AssetMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode asset meta %s/%s: %w", projectID, assetID, err)
	}
	return &meta, nil
}

// SetAssetMeta encodes and persists an asset's metadata document. The write
// replaces the whole document; callers are expected to hold the asset lock
// while mutating it.
func (c *Client) SetAssetMeta(ctx context.Context, projectID, assetID string, meta *domain.AssetMeta) error {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if err := meta.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode asset meta: %w", err)
	}

	_, err = c.mc.PutObject(ctx, projectID, assetID+"/"+assetMetaObject,
		bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		log.Error("failed to write asset meta",
			slog.String("project", projectID),
			slog.String("asset", assetID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to write asset meta %s/%s: %w", projectID, assetID, mapError(err))
	}
	return nil
}

// GetProjectMeta retrieves the project's metadata document.
// Returns store.ErrProjectNotFound when the project has none.
func (c *Client) GetProjectMeta(ctx context.Context, projectID string) (*domain.ProjectMeta, error) {
	raw, err := c.getObject(ctx, projectID, projectMetaObject)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project meta %s: %w", projectID, err)
	}

	var meta domain.ProjectMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode project meta %s: %w", projectID, err)
	}
	return &meta, nil
}

// SetProjectMeta encodes and persists the project's metadata document.
func (c *Client) SetProjectMeta(ctx context.Context, projectID string, meta *domain.ProjectMeta) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode project meta: %w", err)
	}
	_, err = c.mc.PutObject(ctx, projectID, projectMetaObject,
		bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to write project meta %s: %w", projectID, mapError(err))
	}
	return nil
}

// HasAccess reports whether a caller with the given groups may mutate the
// project. Projects without a metadata document are unrestricted, matching
// the behavior of freshly created buckets.
func (c *Client) HasAccess(ctx context.Context, projectID string, groups []string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	meta, err := c.GetProjectMeta(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return true
		}
		c.logger.Warn("access check failed, denying",
			slog.String("project", projectID),
			slog.String("error", err.Error()))
		return false
	}
	return meta.Access.CanWrite(groups, isAdmin)
}

// DownloadAsset copies an object belonging to an asset into a local file.
// objectPath is relative to the asset folder, e.g. "2/photo.png".
func (c *Client) DownloadAsset(ctx context.Context, projectID, assetID, objectPath, localPath string) error {
	err := c.mc.FGetObject(ctx, projectID, assetID+"/"+objectPath, localPath, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to download %s/%s/%s: %w", projectID, assetID, objectPath, mapError(err))
	}
	return nil
}

// UploadAsset copies a local file to an object inside the asset folder.
func (c *Client) UploadAsset(ctx context.Context, projectID, assetID, objectPath, localPath string) error {
	_, err := c.mc.FPutObject(ctx, projectID, assetID+"/"+objectPath, localPath, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s/%s: %w", projectID, assetID, objectPath, mapError(err))
	}
	return nil
}

// UploadAssetFolder walks a local directory and uploads every regular file
// under the current version's worker output prefix:
// <assetID>/<version>/<workerName>/<relative path>.
func (c *Client) UploadAssetFolder(ctx context.Context, projectID string, meta *domain.AssetMeta, folder, workerName string) error {
	log := logger.FromContextOrDefault(ctx, c.logger)
	prefix := meta.WorkerRoot() + workerName + "/"

	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		object := prefix + filepath.ToSlash(rel)
		return c.UploadAsset(ctx, projectID, meta.ID, object, path)
	})
	if err != nil {
		return fmt.Errorf("failed to upload folder for %s/%s: %w", projectID, meta.ID, err)
	}

	log.Info("worker output uploaded",
		slog.String("project", projectID),
		slog.String("asset", meta.ID),
		slog.String("prefix", prefix))
	return nil
}

// getObject reads a whole object into memory. Small metadata documents
// only; file payloads go through DownloadAsset.
func (c *Client) getObject(ctx context.Context, bucket, object string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = obj.Close() }()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err)
	}
	return raw, nil
}

// mapError converts minio error responses into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %v", store.ErrProjectNotFound, err)
	}
	if strings.Contains(err.Error(), "does not exist") {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	return err
}
