package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facesearch/internal/imaging"
	"github.com/your-org/facesearch/internal/vision"
	"github.com/your-org/facesearch/pkg/dto"
)

// MediaHandler serves the stateless utility endpoints: direct
// encoding-vs-encoding comparison and probe image enhancement. Neither
// touches storage or the sources, so nothing is recorded.
type MediaHandler struct {
	prep      *imaging.Preprocessor
	threshold float64
}

func NewMediaHandler(prep *imaging.Preprocessor, matchThreshold float64) *MediaHandler {
	return &MediaHandler{prep: prep, threshold: matchThreshold}
}

// Compare scores two face encodings against each other without running
// detection.
func (h *MediaHandler) Compare(c *gin.Context) {
	var req dto.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmp, err := vision.CompareEmbeddings(req.KnownEncoding, req.UnknownEncoding, h.threshold)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.CompareResponse{
		IsMatch:    cmp.IsMatch,
		Similarity: cmp.Similarity,
		Distance:   cmp.Distance,
		Confidence: cmp.Confidence,
	})
}

// Enhance equalizes the luminance of an uploaded image and returns the
// result as JPEG bytes.
func (h *MediaHandler) Enhance(c *gin.Context) {
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

	enhanced := imaging.Enhance(img.Image)
	c.Data(http.StatusOK, "image/jpeg", imaging.EncodeJPEG(enhanced, 92))
}
