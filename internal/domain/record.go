package domain

// SearchRecord is one denormalized projection row, ready to be written to
// the search index as-is. ObjectID maps 1:1 to the index object identifier
// and is always set by us, never server-generated.
//
// Localized payload fields carry two language variants each; absent variants
// stay nil and are omitted from the index payload.
type SearchRecord struct {
	ObjectID string `json:"objectID"`
	Source   string `json:"Source"`

	// Access-control facets. The index filters on these without joins.
	AccessLevel          AccessLevel `json:"access_level"`
	IsGlobal             bool        `json:"is_global"`
	AssignedWorkspaceIDs []string    `json:"assigned_workspace_ids"`

	FactorValue *float64 `json:"factor_value,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	Date        *int     `json:"date,omitempty"`
	Uncertainty *string  `json:"uncertainty,omitempty"`

	NameFR        *string `json:"name_fr,omitempty"`
	NameEN        *string `json:"name_en,omitempty"`
	DescriptionFR *string `json:"description_fr,omitempty"`
	DescriptionEN *string `json:"description_en,omitempty"`
	SectorFR      *string `json:"sector_fr,omitempty"`
	SectorEN      *string `json:"sector_en,omitempty"`
	SubsectorFR   *string `json:"subsector_fr,omitempty"`
	SubsectorEN   *string `json:"subsector_en,omitempty"`
	ScopeFR       *string `json:"scope_fr,omitempty"`
	ScopeEN       *string `json:"scope_en,omitempty"`
	LocationFR    *string `json:"location_fr,omitempty"`
	LocationEN    *string `json:"location_en,omitempty"`
	CommentsFR    *string `json:"comments_fr,omitempty"`
	CommentsEN    *string `json:"comments_en,omitempty"`
}

// SyncStatus classifies the outcome of one per-source reconciliation.
type SyncStatus string

const (
	SyncStatusOK      SyncStatus = "ok"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusSkipped SyncStatus = "skipped"
)

// SyncResult summarizes one differential sync of a single source.
type SyncResult struct {
	Status   SyncStatus `json:"status"`
	Upserted int        `json:"upserted"`
	Deleted  int        `json:"deleted"`
	Error    string     `json:"error,omitempty"`
}
