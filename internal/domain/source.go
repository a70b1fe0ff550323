package domain

import (
	"time"
)

// AccessLevel controls which workspaces can see a source's records.
type AccessLevel string

const (
	// AccessLevelFree sources are visible to every workspace.
	AccessLevelFree AccessLevel = "free"
	// AccessLevelPaid sources are visible only to explicitly assigned workspaces.
	AccessLevelPaid AccessLevel = "paid"
)

// Valid reports whether the access level is one of the known values.
func (a AccessLevel) Valid() bool {
	return a == AccessLevelFree || a == AccessLevelPaid
}

// Source is a named data-provider grouping of emission factors. The source
// name doubles as the partition key for index synchronization.
type Source struct {
	Name         string      `json:"source_name"`
	AccessLevel  AccessLevel `json:"access_level"`
	IsGlobal     bool        `json:"is_global"`
	AutoDetected bool        `json:"auto_detected"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewSource creates a source with the free access level unless told otherwise.
func NewSource(name string, level AccessLevel) Source {
	now := time.Now()
	if !level.Valid() {
		level = AccessLevelFree
	}
	return Source{
		Name:        name,
		AccessLevel: level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
