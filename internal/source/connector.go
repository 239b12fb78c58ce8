package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/facesearch/internal/models"
)

// Connector failure taxonomy. Anything a connector returns wraps one of
// these; the aggregator absorbs them all and never fails the request.
var (
	ErrUnavailable = errors.New("source unavailable")
	ErrTimeout     = errors.New("source timeout")
	ErrRateLimited = errors.New("source rate limited")
)

// Query is one fan-out request scoped to a single analysis.
type Query struct {
	// Embedding is the primary face descriptor; nil for text-only searches.
	Embedding []float32
	// Hints is free text accompanying the search, e.g. "person face identification".
	Hints string
	// Name is a profile name for text-based lookups; empty for face-only searches.
	Name string
}

// Connector is the uniform contract over heterogeneous lookup sources.
// Implementations must be stateless and safe for concurrent use, enforce
// their own timeout, and never treat zero results as an error.
type Connector interface {
	ID() string
	Query(ctx context.Context, q Query) ([]models.Candidate, error)
}

// wrapErr tags a taxonomy error with the source id and underlying cause.
func wrapErr(id string, kind, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", id, kind)
	}
	return fmt.Errorf("%s: %w: %v", id, kind, cause)
}

// clampScore normalizes a similarity score onto the 0-100 scale shared by
// all sources.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
