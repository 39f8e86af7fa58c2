// Package dzimage implements the deep-zoom worker: it converts an image
// asset into a Deep Zoom pyramid with vips and publishes the resulting
// .dzi descriptor as the asset's index file.
package dzimage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/worker"
)

// WorkerType identifies this plugin in task queue claims.
const WorkerType = "dz"

// Plugin converts images into Deep Zoom pyramids.
type Plugin struct {
	tempDir string

	// run executes the external conversion command; swapped in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// New creates the plugin. tempDir is where images are staged; empty means
// the system default.
func New(tempDir string) *Plugin {
	return &Plugin{
		tempDir: tempDir,
		run: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s: %w: %s", name, err, out)
			}
			return nil
		},
	}
}

func (p *Plugin) Type() string { return WorkerType }

func (p *Plugin) Extensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".gif"}
}

func (p *Plugin) Description() string {
	return "Converts images into Deep Zoom pyramids for tiled viewing"
}

func (p *Plugin) Docs() string { return "DeepZoomImageWorker.md" }

func (p *Plugin) Parameters() map[string]string {
	return map[string]string{
		"filename": "image to convert, relative to the asset folder (defaults to the asset's file)",
	}
}

// Process downloads the image, runs vips dzsave and uploads the pyramid
// under the asset's worker folder.
func (p *Plugin) Process(ctx context.Context, assets worker.AssetStore, projectID, filename string,
	meta *domain.AssetMeta, options map[string]string) error {

	workDir, err := os.MkdirTemp(p.tempDir, "dzimage-")
	if err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	localImage := filepath.Join(workDir, "input"+filepath.Ext(filename))
	if err := assets.DownloadAsset(ctx, projectID, meta.ID, filename, localImage); err != nil {
		return fmt.Errorf("downloading %q: %w", filename, err)
	}

	outDir := filepath.Join(workDir, "pyramid")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := p.run(ctx, "vips", "dzsave", localImage, filepath.Join(outDir, "image")); err != nil {
		return fmt.Errorf("converting %q: %w", filename, err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "image.dzi")); err != nil {
		return fmt.Errorf("conversion produced no descriptor: %w", err)
	}

	if err := assets.UploadAssetFolder(ctx, projectID, meta, outDir, WorkerType); err != nil {
		return fmt.Errorf("uploading pyramid: %w", err)
	}

	meta.IndexFile = meta.ProxyURL + meta.Project + "/" + meta.ID + "/" +
		meta.WorkerRoot() + WorkerType + "/image.dzi"
	if err := assets.SetAssetMeta(ctx, projectID, meta.ID, meta); err != nil {
		return fmt.Errorf("saving index file: %w", err)
	}
	return nil
}
