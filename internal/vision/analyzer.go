package vision

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/imaging"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/internal/observability"
)

// Analyzer turns a decoded image into detected faces with embeddings and
// optional attribute estimates. It never fails on a face-free image: the
// result is simply an empty slice.
type Analyzer struct {
	detector   *Detector
	embedder   *Embedder
	attributes *AttributePredictor
	emotion    *EmotionPredictor // nil when the optional model is disabled
}

// NewAnalyzer loads all ONNX models from cfg.ModelsDir.
func NewAnalyzer(cfg config.VisionConfig) (*Analyzer, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")
	attrPath := filepath.Join(cfg.ModelsDir, "genderage.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	slog.Info("loading attribute model", "path", attrPath)
	attr, err := NewAttributePredictor(attrPath)
	if err != nil {
		det.Close()
		emb.Close()
		return nil, fmt.Errorf("load attributes: %w", err)
	}

	a := &Analyzer{detector: det, embedder: emb, attributes: attr}

	if cfg.EmotionModel {
		emoPath := filepath.Join(cfg.ModelsDir, "emotion.onnx")
		slog.Info("loading emotion model", "path", emoPath)
		emo, err := NewEmotionPredictor(emoPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load emotion: %w", err)
		}
		a.emotion = emo
	}

	slog.Info("vision analyzer ready", "embedding_dim", emb.Dim())
	return a, nil
}

// Dim returns the embedding dimensionality produced by Analyze.
func (a *Analyzer) Dim() int {
	return a.embedder.Dim()
}

// Analyze detects faces in img and returns them ordered by detector
// confidence, highest first. The first entry is the primary face used for
// downstream source queries. Attribute estimates are best effort; a failed
// prediction leaves the field nil.
func (a *Analyzer) Analyze(img image.Image) ([]models.DetectedFace, error) {
	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, a.detector.inputW, a.detector.inputH)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	detections, err := a.detector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	faces := make([]models.DetectedFace, 0, len(detections))
	for _, det := range detections {
		crop := cropFace(img, det.BBox)
		if crop == nil {
			continue
		}

		start = time.Now()
		embInput := preprocessForEmbedding(crop, a.embedder.inputW, a.embedder.inputH)
		embedding, err := a.embedder.Extract(embInput)
		if err != nil {
			slog.Warn("embed face", "error", err)
			continue
		}
		observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

		face := models.DetectedFace{
			BBox: models.BoundingBox{
				X:      int(det.BBox[0]),
				Y:      int(det.BBox[1]),
				Width:  int(det.BBox[2] - det.BBox[0]),
				Height: int(det.BBox[3] - det.BBox[1]),
			},
			Confidence: det.Confidence,
			Embedding:  embedding,
		}

		start = time.Now()
		attrInput := preprocessForAttributes(crop, a.attributes.inputW, a.attributes.inputH)
		if ga, err := a.attributes.Predict(attrInput); err != nil {
			slog.Warn("predict attributes", "error", err)
		} else {
			// The genderage model gives a point estimate without its own
			// confidence; the detector score is the closest proxy.
			face.Attributes.Age = &models.AgeEstimate{
				Years:      ga.Age,
				Range:      ga.AgeRange,
				Confidence: det.Confidence,
			}
			face.Attributes.Gender = &models.Attribute{
				Value:      ga.Gender,
				Confidence: ga.GenderConfidence,
			}
		}
		observability.InferenceDuration.WithLabelValues("attrs").Observe(time.Since(start).Seconds())

		if a.emotion != nil {
			start = time.Now()
			emoInput := preprocessForAttributes(crop, a.emotion.inputW, a.emotion.inputH)
			if emo, err := a.emotion.Predict(emoInput); err != nil {
				slog.Warn("predict emotion", "error", err)
			} else {
				face.Attributes.Emotion = &models.Attribute{
					Value:      emo.Label,
					Confidence: emo.Confidence,
				}
			}
			observability.InferenceDuration.WithLabelValues("emotion").Observe(time.Since(start).Seconds())
		}

		faces = append(faces, face)
	}

	return faces, nil
}

// Close releases all ONNX sessions.
func (a *Analyzer) Close() {
	if a.detector != nil {
		a.detector.Close()
	}
	if a.embedder != nil {
		a.embedder.Close()
	}
	if a.attributes != nil {
		a.attributes.Close()
	}
	if a.emotion != nil {
		a.emotion.Close()
	}
}

// --- model input preprocessing ---

func preprocessForDetection(img image.Image, targetW, targetH int) []float32 {
	return toFloat32CHW(img, targetW, targetH, [3]float32{127.5, 127.5, 127.5}, [3]float32{128.0, 128.0, 128.0})
}

func preprocessForEmbedding(img image.Image, targetW, targetH int) []float32 {
	return toFloat32CHW(img, targetW, targetH, [3]float32{127.5, 127.5, 127.5}, [3]float32{127.5, 127.5, 127.5})
}

func preprocessForAttributes(img image.Image, targetW, targetH int) []float32 {
	return toFloat32CHW(img, targetW, targetH, [3]float32{0, 0, 0}, [3]float32{1, 1, 1})
}

// toFloat32CHW scales the image and converts it to CHW float32 with
// per-channel (pixel - mean) / std normalization.
func toFloat32CHW(img image.Image, targetW, targetH int, mean, std [3]float32) []float32 {
	resized := imaging.Scale(img, targetW, targetH)
	data := make([]float32, 3*targetH*targetW)

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()

			idx := y*targetW + x
			data[0*targetH*targetW+idx] = (float32(r>>8) - mean[0]) / std[0]
			data[1*targetH*targetW+idx] = (float32(g>>8) - mean[1]) / std[1]
			data[2*targetH*targetW+idx] = (float32(b>>8) - mean[2]) / std[2]
		}
	}

	return data
}

// cropFace extracts the face region with 10% padding on each side.
func cropFace(img image.Image, bbox [4]float32) image.Image {
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w <= 0 || h <= 0 {
		return nil
	}

	padW := int(w * 0.1)
	padH := int(h * 0.1)

	rect := image.Rect(
		int(bbox[0])-padW,
		int(bbox[1])-padH,
		int(bbox[2])+padW,
		int(bbox[3])+padH,
	)

	crop := imaging.Crop(img, rect)
	if crop == nil {
		return nil
	}
	return crop
}
