package domain

import (
	"fmt"
	"strings"
)

// ProjectAccess holds the access-control groups of a project. An empty
// WriteGroups list means the project is writable by any authenticated user.
type ProjectAccess struct {
	ReadGroups  []string `json:"read_groups,omitempty"`
	WriteGroups []string `json:"write_groups,omitempty"`
}

// CanWrite reports whether a caller carrying the given groups may mutate the
// project. Admins bypass the group check entirely.
func (a ProjectAccess) CanWrite(groups []string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	if len(a.WriteGroups) == 0 {
		return true
	}
	for _, g := range groups {
		for _, wg := range a.WriteGroups {
			if g == wg {
				return true
			}
		}
	}
	return false
}

// ProjectMeta is the metadata document for one project (one bucket). It is
// not concurrency-sensitive; it exists for completeness of the storage layer.
type ProjectMeta struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Authors     string        `json:"authors,omitempty"`
	Publications string       `json:"publications,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Access      ProjectAccess `json:"access"`
}

// Validate checks the required project fields.
func (p *ProjectMeta) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id", ErrMissingParameter)
	}
	return nil
}

// UserAccess describes the caller of a scheduler operation, as extracted
// from the verified auth token. It is the input to every access check.
type UserAccess struct {
	Username    string
	ReadGroups  []string
	WriteGroups []string
	Admin       bool
}
