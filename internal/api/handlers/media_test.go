package handlers

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/imaging"
	"github.com/your-org/facesearch/pkg/dto"
)

func mediaSetup() *gin.Engine {
	gin.SetMode(gin.TestMode)

	prep := imaging.NewPreprocessor(config.UploadConfig{
		MaxBytes:     16 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif"},
	})
	h := NewMediaHandler(prep, 0.6)

	r := gin.New()
	r.POST("/compare", h.Compare)
	r.POST("/enhance", h.Enhance)
	return r
}

func TestCompareEndpointMatch(t *testing.T) {
	r := mediaSetup()

	payload, _ := json.Marshal(dto.CompareRequest{
		KnownEncoding:   []float32{0.6, 0.8},
		UnknownEncoding: []float32{0.6, 0.8},
	})
	req := httptest.NewRequest(http.MethodPost, "/compare", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp dto.CompareResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.IsMatch || resp.Confidence != "high" {
		t.Errorf("identical encodings must be a high-confidence match: %+v", resp)
	}
	if resp.Similarity < 99.9 {
		t.Errorf("expected similarity ~100, got %f", resp.Similarity)
	}
}

func TestCompareEndpointRejectsMismatchedLengths(t *testing.T) {
	r := mediaSetup()

	payload, _ := json.Marshal(dto.CompareRequest{
		KnownEncoding:   []float32{1, 0},
		UnknownEncoding: []float32{1},
	})
	req := httptest.NewRequest(http.MethodPost, "/compare", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCompareEndpointRequiresBothEncodings(t *testing.T) {
	r := mediaSetup()

	req := httptest.NewRequest(http.MethodPost, "/compare", bytes.NewReader([]byte(`{"known_encoding":[1,0]}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEnhanceEndpointReturnsJPEG(t *testing.T) {
	r := mediaSetup()

	body, ct := multipartImage(t, jpegBytes(t), "image/jpeg")
	req := httptest.NewRequest(http.MethodPost, "/enhance", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", got)
	}

	img, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a decodable JPEG: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Errorf("enhanced image changed size: %v", img.Bounds())
	}
}

func TestEnhanceEndpointRejectsInvalidImage(t *testing.T) {
	r := mediaSetup()

	body, ct := multipartImage(t, []byte("not an image"), "image/jpeg")
	req := httptest.NewRequest(http.MethodPost, "/enhance", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
