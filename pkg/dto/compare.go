package dto

// CompareRequest carries two face encodings for a direct match check,
// bypassing detection entirely.
type CompareRequest struct {
	KnownEncoding   []float32 `json:"known_encoding" binding:"required"`
	UnknownEncoding []float32 `json:"unknown_encoding" binding:"required"`
}

type CompareResponse struct {
	IsMatch bool `json:"is_match"`
	// Similarity is on the shared 0-100 scale.
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
	Confidence string  `json:"confidence"`
}
