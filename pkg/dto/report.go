package dto

import "github.com/google/uuid"

// CreateReportRequest asks for an HTML export of one search record.
// Officer fields are recorded verbatim into the document.
type CreateReportRequest struct {
	RecordID    uuid.UUID `json:"record_id" binding:"required"`
	OfficerName string    `json:"officer_name"`
	BadgeNumber string    `json:"badge_number"`
	Department  string    `json:"department"`
	Country     string    `json:"country"`
	CaseNumber  string    `json:"case_number"`
}
