package handlers

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facesearch/internal/aggregate"
	"github.com/your-org/facesearch/internal/auth"
	"github.com/your-org/facesearch/internal/imaging"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/internal/observability"
	"github.com/your-org/facesearch/internal/source"
	"github.com/your-org/facesearch/internal/storage"
	"github.com/your-org/facesearch/pkg/dto"
)

// RecordStore is the slice of the database the analysis handlers need.
type RecordStore interface {
	CreateSearchRecord(ctx context.Context, rec *models.SearchRecord) error
}

// ResultArchive persists probe images and archived results.
type ResultArchive interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	PutResult(ctx context.Context, recordID string, result *models.AggregatedResult) (string, error)
}

// SearchNotifier announces completed searches to interested consumers.
type SearchNotifier interface {
	PublishSearchCompleted(ctx context.Context, ev *models.SearchCompleted) error
}

type AnalyzeHandler struct {
	prep     *imaging.Preprocessor
	agg      *aggregate.Aggregator
	records  RecordStore
	archive  ResultArchive
	notifier SearchNotifier
	// AnalyzeFn runs face detection and embedding on a decoded image.
	// Set after the vision analyzer is initialized.
	AnalyzeFn func(img image.Image) ([]models.DetectedFace, error)
}

func NewAnalyzeHandler(prep *imaging.Preprocessor, agg *aggregate.Aggregator, records RecordStore, archive ResultArchive, notifier SearchNotifier) *AnalyzeHandler {
	return &AnalyzeHandler{prep: prep, agg: agg, records: records, archive: archive, notifier: notifier}
}

// defaultSearchHint accompanies face uploads that carry no search_query
// field, so text-capable sources always have something to work with.
const defaultSearchHint = "person face"

// Analyze accepts a multipart probe image plus an optional search_query
// hint, detects faces, fans the primary face out to all sources and
// persists the audit record. A face-free image is a successful search
// with zero matches.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	img, err := h.prep.Prepare(data, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, imaging.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.AnalyzeFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision analyzer not initialized"})
		return
	}

	faces, err := h.AnalyzeFn(img.Image)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed: " + err.Error()})
		return
	}

	observability.SearchesTotal.WithLabelValues(string(models.SearchTypeFaceUpload)).Inc()
	observability.FacesDetected.Add(float64(len(faces)))

	hint := strings.TrimSpace(c.PostForm("search_query"))
	if hint == "" {
		hint = defaultSearchHint
	}

	result := &models.AggregatedResult{}
	if len(faces) > 0 {
		// The primary face is the highest-confidence detection.
		result = h.agg.Aggregate(ctx, source.Query{
			Embedding: faces[0].Embedding,
			Hints:     hint,
		})
	}

	rec := &models.SearchRecord{
		ID:              uuid.New(),
		UserID:          userID,
		SearchType:      models.SearchTypeFaceUpload,
		FacesDetected:   len(faces),
		TotalMatches:    result.TotalMatches,
		DegradedSources: result.DegradedSources(),
		ImageHash:       img.Hash,
	}

	var warnings []string

	if err := h.archive.PutObject(ctx, storage.UploadKey(img.Hash), img.Data, img.MIME); err != nil {
		slog.Warn("archive probe image", "error", err)
		warnings = append(warnings, "probe image was not archived")
	}
	if len(faces) > 0 {
		key, err := h.archive.PutResult(ctx, rec.ID.String(), result)
		if err != nil {
			slog.Warn("archive result", "error", err)
			warnings = append(warnings, "result archive failed; export will be unavailable for this record")
		} else {
			rec.ResultKey = key
		}
	}

	warnings = append(warnings, h.persistAndNotify(ctx, rec)...)

	c.JSON(http.StatusOK, dto.AnalyzeResponse{
		RecordID:      rec.ID,
		SearchType:    rec.SearchType,
		ImageHash:     img.Hash,
		FacesDetected: len(faces),
		Faces:         faces,
		Candidates:    result.Candidates,
		Sources:       result.Sources,
		TotalMatches:  result.TotalMatches,
		Warnings:      warnings,
	})
}

// SearchByName fans a free-text name query out to the text-capable
// sources. No image is involved, so the record carries no hash.
func (h *AnalyzeHandler) SearchByName(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	var req dto.NameSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	observability.SearchesTotal.WithLabelValues(string(models.SearchTypeName)).Inc()

	result := h.agg.Aggregate(ctx, source.Query{Name: req.Name})

	rec := &models.SearchRecord{
		ID:              uuid.New(),
		UserID:          userID,
		SearchType:      models.SearchTypeName,
		TotalMatches:    result.TotalMatches,
		DegradedSources: result.DegradedSources(),
	}

	var warnings []string
	key, err := h.archive.PutResult(ctx, rec.ID.String(), result)
	if err != nil {
		slog.Warn("archive result", "error", err)
		warnings = append(warnings, "result archive failed; export will be unavailable for this record")
	} else {
		rec.ResultKey = key
	}

	warnings = append(warnings, h.persistAndNotify(ctx, rec)...)

	c.JSON(http.StatusOK, dto.NameSearchResponse{
		RecordID:     rec.ID,
		SearchType:   rec.SearchType,
		Query:        req.Name,
		Candidates:   result.Candidates,
		Sources:      result.Sources,
		TotalMatches: result.TotalMatches,
		Warnings:     warnings,
	})
}

// persistAndNotify writes the audit record and publishes the completion
// event. Both are best effort: the caller already has their results, so
// failures become response warnings instead of errors.
func (h *AnalyzeHandler) persistAndNotify(ctx context.Context, rec *models.SearchRecord) []string {
	var warnings []string

	if err := h.records.CreateSearchRecord(ctx, rec); err != nil {
		observability.RecordWriteFailures.Inc()
		slog.Error("write search record", "record_id", rec.ID, "error", err)
		warnings = append(warnings, "search record was not persisted; this search will not appear in history")
		return warnings
	}

	if h.notifier != nil {
		ev := &models.SearchCompleted{
			RecordID:        rec.ID,
			UserID:          rec.UserID,
			SearchType:      rec.SearchType,
			FacesDetected:   rec.FacesDetected,
			TotalMatches:    rec.TotalMatches,
			DegradedSources: rec.DegradedSources,
			CreatedAt:       time.Now().UTC(),
		}
		if err := h.notifier.PublishSearchCompleted(ctx, ev); err != nil {
			slog.Warn("publish search event", "record_id", rec.ID, "error", err)
		}
	}

	return warnings
}
