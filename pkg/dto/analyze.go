package dto

import (
	"github.com/google/uuid"

	"github.com/your-org/facesearch/internal/models"
)

// AnalyzeResponse is the full outcome of one probe-image analysis. A
// zero FacesDetected with empty Candidates is a valid success: nothing
// was found, nothing was searched.
type AnalyzeResponse struct {
	RecordID      uuid.UUID             `json:"record_id"`
	SearchType    models.SearchType     `json:"search_type"`
	ImageHash     string                `json:"image_hash,omitempty"`
	FacesDetected int                   `json:"faces_detected"`
	Faces         []models.DetectedFace `json:"faces"`
	Candidates    []models.Candidate    `json:"candidates"`
	Sources       []models.SourceStatus `json:"sources"`
	TotalMatches  int                   `json:"total_matches"`
	Warnings      []string              `json:"warnings,omitempty"`
}

type NameSearchRequest struct {
	Name string `json:"name" binding:"required"`
}

type NameSearchResponse struct {
	RecordID     uuid.UUID             `json:"record_id"`
	SearchType   models.SearchType     `json:"search_type"`
	Query        string                `json:"query"`
	Candidates   []models.Candidate    `json:"candidates"`
	Sources      []models.SourceStatus `json:"sources"`
	TotalMatches int                   `json:"total_matches"`
	Warnings     []string              `json:"warnings,omitempty"`
}
