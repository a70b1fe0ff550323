package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceAssignment grants one workspace visibility of one paid source.
// Its lifecycle changes must propagate into every projection row's
// assigned_workspace_ids set. AssignedBy is nil when no authenticated
// actor was attached to the request; the column stays NULL rather than
// recording the zero UUID.
type WorkspaceAssignment struct {
	SourceName  string     `json:"source_name"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	AssignedBy  *uuid.UUID `json:"assigned_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AssignmentAction distinguishes granting from revoking access.
type AssignmentAction string

const (
	ActionAssign   AssignmentAction = "assign"
	ActionUnassign AssignmentAction = "unassign"
)

// Valid reports whether the action is one of the known values.
func (a AssignmentAction) Valid() bool {
	return a == ActionAssign || a == ActionUnassign
}
