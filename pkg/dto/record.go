package dto

import (
	"github.com/google/uuid"

	"github.com/your-org/facesearch/internal/models"
)

type SearchRecordResponse struct {
	ID              uuid.UUID         `json:"id"`
	SearchType      models.SearchType `json:"search_type"`
	FacesDetected   int               `json:"faces_detected"`
	TotalMatches    int               `json:"total_matches"`
	DegradedSources []string          `json:"degraded_sources,omitempty"`
	ImageHash       string            `json:"image_hash,omitempty"`
	CreatedAt       string            `json:"created_at"`
}

type HistoryResponse struct {
	Records []SearchRecordResponse `json:"records"`
	Total   int                    `json:"total"`
}

// RecordDetailResponse pairs a history entry with its archived result.
type RecordDetailResponse struct {
	Record SearchRecordResponse     `json:"record"`
	Result *models.AggregatedResult `json:"result,omitempty"`
}
