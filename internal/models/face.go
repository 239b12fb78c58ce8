package models

// BoundingBox locates a face within the source image in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AgeEstimate is a best-effort age prediction for a face.
type AgeEstimate struct {
	Years      int     `json:"years"`
	Range      string  `json:"range"` // e.g. "30-35"
	Confidence float32 `json:"confidence"`
}

// Attribute is a labelled prediction with a confidence score.
type Attribute struct {
	Value      string  `json:"value"`
	Confidence float32 `json:"confidence"`
}

// FaceAttributes holds optional per-face attribute estimates.
// A nil field means the estimate is unavailable, not unknown-with-a-default.
type FaceAttributes struct {
	Age     *AgeEstimate `json:"age,omitempty"`
	Gender  *Attribute   `json:"gender,omitempty"`
	Emotion *Attribute   `json:"emotion,omitempty"`
}

// DetectedFace is one face found in an uploaded image, with its embedding.
// Embeddings are L2-normalized; similarity between two embeddings is their
// cosine similarity (dot product), higher meaning more alike.
type DetectedFace struct {
	BBox       BoundingBox    `json:"bbox"`
	Confidence float32        `json:"confidence"`
	Embedding  []float32      `json:"-"`
	Attributes FaceAttributes `json:"attributes"`
}
