package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HistoryEventType labels an entry in an asset's version history.
type HistoryEventType string

// Known history event types.
const (
	HistoryCreated  HistoryEventType = "Created"
	HistoryUploaded HistoryEventType = "Uploaded"
	HistoryUpdated  HistoryEventType = "Updated"
)

// HistoryEntry is one version-producing event on an asset. The history is
// append-only and is the source of the monotonic version counter.
type HistoryEntry struct {
	Type    HistoryEventType `json:"type"`
	Time    time.Time        `json:"time"`
	Version int              `json:"version"`
}

// AssetMeta is the metadata document for one asset (one folder inside a
// project bucket). It is owned by the storage layer and mutated only through
// its methods; the Worker field doubles as the asset lock.
type AssetMeta struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Project     string         `json:"project"`
	Description string         `json:"description,omitempty"`
	Filename    string         `json:"filename"`
	ProxyURL    string         `json:"proxy_url,omitempty"`
	IndexFile   string         `json:"index_file"`
	Uploaded    bool           `json:"uploaded"`
	Version     int            `json:"version"`
	History     []HistoryEntry `json:"history"`
	Tags        []string       `json:"tags,omitempty"`

	// Worker is the name of the worker currently holding the asset lock.
	// Empty means the asset is free.
	Worker string `json:"worker,omitempty"`

	ProcessingStatus string `json:"processing_status,omitempty"`
	ProcessingError  string `json:"processing_error,omitempty"`
}

// NewAssetMeta creates an asset metadata document at version 1 with a
// Created history entry.
func NewAssetMeta(id, name, project string) *AssetMeta {
	meta := &AssetMeta{
		ID:      id,
		Name:    name,
		Project: project,
	}
	meta.Created()
	return meta
}

// Created resets the history to a single version-1 entry and recomputes the
// index file.
func (m *AssetMeta) Created() {
	m.History = []HistoryEntry{{Type: HistoryCreated, Time: time.Now().UTC(), Version: 1}}
	m.Version = 1
	m.refreshIndexFile()
}

// Upload records a completed file upload for the current version.
func (m *AssetMeta) Upload() {
	m.History = append(m.History, HistoryEntry{
		Type:    HistoryUploaded,
		Time:    time.Now().UTC(),
		Version: m.Version,
	})
	m.Uploaded = true
	m.refreshIndexFile()
}

// Update appends a new version to the history. The version counter only
// ever moves forward.
func (m *AssetMeta) Update() {
	next := m.Version + 1
	m.History = append(m.History, HistoryEntry{
		Type:    HistoryUpdated,
		Time:    time.Now().UTC(),
		Version: next,
	})
	m.Version = next
	m.refreshIndexFile()
}

// refreshIndexFile recomputes the canonical artifact path from the current
// version and filename. Called on every version-producing mutation.
func (m *AssetMeta) refreshIndexFile() {
	m.IndexFile = m.ProxyURL + m.Project + "/" + m.ID + "/" + strconv.Itoa(m.Version) + "/" + m.Filename
}

// FileLocation is the object path of the current version's file inside the
// asset folder.
func (m *AssetMeta) FileLocation() string {
	return strconv.Itoa(m.Version) + "/" + m.Filename
}

// WorkerRoot is the object prefix under which worker outputs for the current
// version are stored.
func (m *AssetMeta) WorkerRoot() string {
	return strconv.Itoa(m.Version) + "/"
}

// AcquireLock sets the asset lock for the named worker. Re-locking by the
// current holder is allowed; any other holder causes ErrWorkerLock.
func (m *AssetMeta) AcquireLock(workerName string) error {
	if m.Worker != "" && m.Worker != workerName {
		return fmt.Errorf("%w: held by %q", ErrWorkerLock, m.Worker)
	}
	m.Worker = workerName
	return nil
}

// ReleaseLock clears the lock only if the named worker holds it. Releasing
// a lock held by someone else is a no-op: a slow unlock must never clear a
// newer holder's lock after a forced reset.
func (m *AssetMeta) ReleaseLock(workerName string) {
	if m.Worker == workerName {
		m.Worker = ""
	}
}

// Locked reports whether any worker currently holds the asset lock.
func (m *AssetMeta) Locked() bool { return m.Worker != "" }

// Validate checks the asset metadata invariants.
func (m *AssetMeta) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: id", ErrMissingParameter)
	}
	if strings.TrimSpace(m.Project) == "" {
		return fmt.Errorf("%w: project", ErrMissingParameter)
	}
	if len(m.History) == 0 {
		return fmt.Errorf("%w: asset has no history", ErrValidation)
	}
	if m.Version != m.History[len(m.History)-1].Version {
		return fmt.Errorf("%w: version %d does not match last history entry %d",
			ErrValidation, m.Version, m.History[len(m.History)-1].Version)
	}
	return nil
}
