// Package zipextract implements the archive-extraction worker: it unpacks
// a zip asset into the asset's worker folder and publishes an index file
// pointing at the extracted entry point.
package zipextract

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/worker"
)

// WorkerType identifies this plugin in task queue claims.
const WorkerType = "extract"

// Basenames promoted to index file when present in the archive.
var indexCandidates = map[string]struct{}{
	"index.html": {},
	"index.htm":  {},
	"index.js":   {},
}

// Plugin extracts zip archives.
type Plugin struct {
	tempDir string
}

// New creates the plugin. tempDir is where archives are staged; empty
// means the system default.
func New(tempDir string) *Plugin {
	return &Plugin{tempDir: tempDir}
}

func (p *Plugin) Type() string         { return WorkerType }
func (p *Plugin) Extensions() []string { return []string{".zip"} }

func (p *Plugin) Description() string {
	return "Extracts zip archives into the asset folder and exposes the contained entry point"
}

func (p *Plugin) Docs() string { return "ZipWorker.md" }

func (p *Plugin) Parameters() map[string]string {
	return map[string]string{
		"filename": "archive to extract, relative to the asset folder (defaults to the asset's file)",
	}
}

// Process downloads the archive, extracts it locally and uploads the tree
// under the asset's worker folder.
func (p *Plugin) Process(ctx context.Context, assets worker.AssetStore, projectID, filename string,
	meta *domain.AssetMeta, options map[string]string) error {

	workDir, err := os.MkdirTemp(p.tempDir, "zipextract-")
	if err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	localZip := filepath.Join(workDir, "input.zip")
	if err := assets.DownloadAsset(ctx, projectID, meta.ID, filename, localZip); err != nil {
		return fmt.Errorf("downloading %q: %w", filename, err)
	}

	extractDir := filepath.Join(workDir, "extracted")
	indexGuess, err := extract(localZip, extractDir)
	if err != nil {
		return fmt.Errorf("extracting %q: %w", filename, err)
	}

	if err := assets.UploadAssetFolder(ctx, projectID, meta, extractDir, WorkerType); err != nil {
		return fmt.Errorf("uploading extracted files: %w", err)
	}

	if indexGuess != "" {
		meta.IndexFile = meta.ProxyURL + meta.Project + "/" + meta.ID + "/" +
			meta.WorkerRoot() + WorkerType + "/" + indexGuess
		if err := assets.SetAssetMeta(ctx, projectID, meta.ID, meta); err != nil {
			return fmt.Errorf("saving index file: %w", err)
		}
	}
	return nil
}

// extract unpacks the archive into destDir and returns the entry-point
// guess: the first regular file, upgraded to a well-known index basename
// when the archive carries one.
func extract(zipPath, destDir string) (string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	indexGuess := ""
	upgraded := false
	for _, file := range reader.File {
		name := path.Clean(file.Name)
		if strings.HasPrefix(name, "..") || path.IsAbs(name) {
			return "", fmt.Errorf("archive entry %q escapes the extraction dir", file.Name)
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := writeEntry(file, target); err != nil {
			return "", err
		}

		if indexGuess == "" {
			indexGuess = name
		}
		if _, known := indexCandidates[path.Base(name)]; known && !upgraded {
			indexGuess = name
			upgraded = true
		}
	}
	return indexGuess, nil
}

func writeEntry(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
