package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facesearch/internal/auth"
	"github.com/your-org/facesearch/internal/report"
	"github.com/your-org/facesearch/pkg/dto"
)

type ReportHandler struct {
	db      HistoryStore
	archive ResultReader
	builder *report.Builder
}

func NewReportHandler(db HistoryStore, archive ResultReader, builder *report.Builder) *ReportHandler {
	return &ReportHandler{db: db, archive: archive, builder: builder}
}

// Create renders one of the caller's records as a printable HTML report.
func (h *ReportHandler) Create(c *gin.Context) {
	userID := auth.UserID(c)

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.db.GetSearchRecord(c.Request.Context(), userID, req.RecordID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if rec.ResultKey == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "record has no archived result to export"})
		return
	}

	result, err := h.archive.GetResult(c.Request.Context(), rec.ResultKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load archived result: " + err.Error()})
		return
	}

	officer := report.Officer{
		Name:        req.OfficerName,
		BadgeNumber: req.BadgeNumber,
		Department:  req.Department,
		Country:     req.Country,
		CaseNumber:  req.CaseNumber,
	}

	html, err := h.builder.Build(rec, result, officer, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="report-`+rec.ID.String()+`.html"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
