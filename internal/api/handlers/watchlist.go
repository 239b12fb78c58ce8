package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facesearch/internal/storage"
	"github.com/your-org/facesearch/pkg/dto"
)

type WatchlistHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
	// EmbedFn extracts the primary face embedding from image bytes.
	// Set after the vision analyzer is initialized.
	EmbedFn func(imageData []byte) ([]float32, float32, error)
}

func NewWatchlistHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *WatchlistHandler {
	return &WatchlistHandler{db: db, minio: minio}
}

func (h *WatchlistHandler) CreatePerson(c *gin.Context) {
	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person, err := h.db.CreatePerson(c.Request.Context(), req.Name, req.Notes, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.PersonResponse{
		ID:        person.ID,
		Name:      person.Name,
		Notes:     person.Notes,
		Metadata:  person.Metadata,
		FaceCount: 0,
		CreatedAt: person.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *WatchlistHandler) ListPersons(c *gin.Context) {
	persons, err := h.db.ListPersons(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PersonResponse, 0, len(persons))
	for _, p := range persons {
		faceCount, _ := h.db.CountFaces(c.Request.Context(), p.ID)
		resp = append(resp, dto.PersonResponse{
			ID:        p.ID,
			Name:      p.Name,
			Notes:     p.Notes,
			Metadata:  p.Metadata,
			FaceCount: faceCount,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"persons": resp, "total": len(resp)})
}

func (h *WatchlistHandler) GetPerson(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	faceCount, _ := h.db.CountFaces(c.Request.Context(), id)

	c.JSON(http.StatusOK, dto.PersonResponse{
		ID:        person.ID,
		Name:      person.Name,
		Notes:     person.Notes,
		Metadata:  person.Metadata,
		FaceCount: faceCount,
		CreatedAt: person.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *WatchlistHandler) DeletePerson(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	if err := h.db.DeletePerson(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// AddFace accepts a multipart image upload, extracts the primary face
// embedding and enrolls it under the person.
func (h *WatchlistHandler) AddFace(c *gin.Context) {
	personID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), personID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	if h.EmbedFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision analyzer not initialized"})
		return
	}

	embedding, quality, err := h.EmbedFn(imageData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to extract face: " + err.Error()})
		return
	}

	faceID := uuid.New()
	sourceKey := storage.FaceKey(personID.String(), faceID.String())
	if err := h.minio.PutObject(c.Request.Context(), sourceKey, imageData, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	fe, err := h.db.AddFaceEmbedding(c.Request.Context(), personID, embedding, quality, sourceKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.FaceEmbeddingResponse{
		ID:        fe.ID,
		PersonID:  fe.PersonID,
		Quality:   fe.Quality,
		SourceKey: fe.SourceKey,
		CreatedAt: fe.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *WatchlistHandler) ListFaces(c *gin.Context) {
	personID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	faces, err := h.db.ListFaceEmbeddings(c.Request.Context(), personID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.FaceEmbeddingResponse, 0, len(faces))
	for _, f := range faces {
		resp = append(resp, dto.FaceEmbeddingResponse{
			ID:        f.ID,
			PersonID:  f.PersonID,
			Quality:   f.Quality,
			SourceKey: f.SourceKey,
			CreatedAt: f.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}

func (h *WatchlistHandler) DeleteFace(c *gin.Context) {
	personID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}
	faceID, err := uuid.Parse(c.Param("faceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid face id"})
		return
	}

	if err := h.db.DeleteFaceEmbedding(c.Request.Context(), personID, faceID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
