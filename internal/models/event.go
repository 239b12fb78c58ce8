package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchCompleted is the message published to NATS after each finished
// analysis so dashboards can follow activity in real time.
type SearchCompleted struct {
	RecordID        uuid.UUID  `json:"record_id"`
	UserID          string     `json:"user_id"`
	SearchType      SearchType `json:"search_type"`
	FacesDetected   int        `json:"faces_detected"`
	TotalMatches    int        `json:"total_matches"`
	DegradedSources []string   `json:"degraded_sources,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
