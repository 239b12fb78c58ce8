package source

import (
	"context"
	"errors"
	"time"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/models"
)

// FaceMatch is one watchlist hit with a cosine similarity score in [0,1].
type FaceMatch struct {
	PersonID    string
	Name        string
	Similarity  float64
	SourceKey   string
	PersonNotes string
}

// FaceSearcher is the slice of the storage layer the watchlist connector
// needs; satisfied by *storage.PostgresStore.
type FaceSearcher interface {
	SearchFaces(ctx context.Context, embedding []float32, threshold float64, limit int) ([]FaceMatch, error)
}

// Watchlist searches the locally enrolled identities via pgvector KNN.
// Unlike the HTTP sources it has no network to fail, but it still honours
// the per-source timeout so a slow database cannot stall the fan-out.
type Watchlist struct {
	id        string
	store     FaceSearcher
	timeout   time.Duration
	threshold float64
}

func NewWatchlist(cfg config.SourceConfig, store FaceSearcher) *Watchlist {
	return &Watchlist{
		id:        cfg.ID,
		store:     store,
		timeout:   cfg.Timeout,
		threshold: cfg.Threshold,
	}
}

func (s *Watchlist) ID() string {
	return s.id
}

// Query runs a nearest-neighbour search over enrolled faces. Cosine
// similarity maps onto the shared 0-100 score scale.
func (s *Watchlist) Query(ctx context.Context, q Query) ([]models.Candidate, error) {
	if len(q.Embedding) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	matches, err := s.store.SearchFaces(ctx, q.Embedding, s.threshold, 50)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, wrapErr(s.id, ErrTimeout, nil)
		}
		return nil, wrapErr(s.id, ErrUnavailable, err)
	}

	candidates := make([]models.Candidate, 0, len(matches))
	for _, m := range matches {
		meta := map[string]string{}
		if m.SourceKey != "" {
			meta["source_key"] = m.SourceKey
		}
		if m.PersonNotes != "" {
			meta["notes"] = m.PersonNotes
		}
		candidates = append(candidates, models.Candidate{
			Source:      s.id,
			Reference:   "watchlist://persons/" + m.PersonID,
			Score:       clampScore(m.Similarity * 100),
			Platform:    "watchlist",
			ProfileName: m.Name,
			Metadata:    meta,
		})
	}

	return candidates, nil
}
