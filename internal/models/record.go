package models

import (
	"time"

	"github.com/google/uuid"
)

type SearchType string

const (
	SearchTypeFaceUpload SearchType = "face_upload_analysis"
	SearchTypeName       SearchType = "name_search"
)

// SearchRecord is the immutable audit entry for one completed analysis.
// Seq is assigned by the database and strictly increases with commit order;
// it breaks ties between records sharing a timestamp.
type SearchRecord struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Seq             int64      `json:"seq" db:"seq"`
	UserID          string     `json:"user_id" db:"user_id"`
	SearchType      SearchType `json:"search_type" db:"search_type"`
	FacesDetected   int        `json:"faces_detected" db:"faces_detected"`
	TotalMatches    int        `json:"total_matches" db:"total_matches"`
	DegradedSources []string   `json:"degraded_sources,omitempty" db:"degraded_sources"`
	ImageHash       string     `json:"image_hash,omitempty" db:"image_hash"`
	ResultKey       string     `json:"result_key" db:"result_key"` // object store key of the archived result
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
