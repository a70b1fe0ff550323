package domain

import "time"

// EmissionFactor is one normalized source-of-truth row. The projection
// flattens these together with source access metadata into SearchRecords.
type EmissionFactor struct {
	ObjectID    string   `json:"object_id"`
	Source      string   `json:"source"`
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

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
