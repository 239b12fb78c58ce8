package vision

import (
	"errors"
	"math"
)

// Comparison is the outcome of matching two face encodings directly.
type Comparison struct {
	// Similarity is the cosine similarity mapped to 0-100.
	Similarity float64
	// Distance is the cosine distance (1 - similarity) in [0,2].
	Distance float64
	// IsMatch reports whether the raw similarity met the threshold.
	IsMatch bool
	// Confidence bands the similarity: "high", "medium" or "low".
	Confidence string
}

var ErrBadEncoding = errors.New("encodings must be non-empty and equal length")

// CompareEmbeddings scores two face encodings against each other. The
// threshold applies to the raw cosine similarity in [-1,1], not the
// 0-100 scale.
func CompareEmbeddings(known, unknown []float32, threshold float64) (Comparison, error) {
	if len(known) == 0 || len(known) != len(unknown) {
		return Comparison{}, ErrBadEncoding
	}

	var dot, normK, normU float64
	for i := range known {
		k, u := float64(known[i]), float64(unknown[i])
		dot += k * u
		normK += k * k
		normU += u * u
	}
	if normK == 0 || normU == 0 {
		return Comparison{}, ErrBadEncoding
	}

	sim := dot / (math.Sqrt(normK) * math.Sqrt(normU))

	pct := sim * 100
	if pct < 0 {
		pct = 0
	}

	return Comparison{
		Similarity: pct,
		Distance:   1 - sim,
		IsMatch:    sim >= threshold,
		Confidence: confidenceBand(pct),
	}, nil
}

func confidenceBand(pct float64) string {
	switch {
	case pct > 80:
		return "high"
	case pct > 60:
		return "medium"
	default:
		return "low"
	}
}
