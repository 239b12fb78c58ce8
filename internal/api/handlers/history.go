package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facesearch/internal/auth"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/pkg/dto"
)

// HistoryStore reads back the append-only search record log.
type HistoryStore interface {
	ListSearchRecords(ctx context.Context, userID string, limit int, before *time.Time) ([]models.SearchRecord, error)
	GetSearchRecord(ctx context.Context, userID string, id uuid.UUID) (*models.SearchRecord, error)
}

// ResultReader loads an archived aggregated result by key.
type ResultReader interface {
	GetResult(ctx context.Context, key string) (*models.AggregatedResult, error)
}

type HistoryHandler struct {
	db      HistoryStore
	archive ResultReader
}

func NewHistoryHandler(db HistoryStore, archive ResultReader) *HistoryHandler {
	return &HistoryHandler{db: db, archive: archive}
}

// List returns the caller's searches, newest first. A `before` cursor
// (RFC 3339) pages further back.
func (h *HistoryHandler) List(c *gin.Context) {
	userID := auth.UserID(c)

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	var before *time.Time
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before cursor, want RFC 3339"})
			return
		}
		before = &t
	}

	records, err := h.db.ListSearchRecords(c.Request.Context(), userID, limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.SearchRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, recordToDTO(rec))
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{Records: resp, Total: len(resp)})
}

// Get returns one record with its archived result, when available.
func (h *HistoryHandler) Get(c *gin.Context) {
	userID := auth.UserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	rec, err := h.db.GetSearchRecord(c.Request.Context(), userID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	detail := dto.RecordDetailResponse{Record: recordToDTO(*rec)}
	if rec.ResultKey != "" {
		result, err := h.archive.GetResult(c.Request.Context(), rec.ResultKey)
		if err == nil {
			detail.Result = result
		}
	}

	c.JSON(http.StatusOK, detail)
}

func recordToDTO(rec models.SearchRecord) dto.SearchRecordResponse {
	return dto.SearchRecordResponse{
		ID:              rec.ID,
		SearchType:      rec.SearchType,
		FacesDetected:   rec.FacesDetected,
		TotalMatches:    rec.TotalMatches,
		DegradedSources: rec.DegradedSources,
		ImageHash:       rec.ImageHash,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}
