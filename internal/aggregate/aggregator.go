package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/internal/observability"
	"github.com/your-org/facesearch/internal/source"
)

// Aggregator fans one query out to every configured connector, collects
// whatever arrives before the deadline, and merges it into a single ranked
// result. It never fails: a fully degraded fan-out yields an empty result
// whose per-source statuses tell the story.
type Aggregator struct {
	connectors    []source.Connector
	deadline      time.Duration
	maxResults    int
	nameThreshold float64
	priority      map[string]int
}

// New wires an aggregator from configuration. Source priority comes from
// the per-source config; lower values outrank higher ones in score ties.
func New(cfg config.AggregationConfig, sources []config.SourceConfig, connectors []source.Connector) *Aggregator {
	priority := make(map[string]int, len(sources))
	for _, s := range sources {
		priority[s.ID] = s.Priority
	}
	return &Aggregator{
		connectors:    connectors,
		deadline:      cfg.Deadline,
		maxResults:    cfg.MaxResults,
		nameThreshold: cfg.NameThreshold,
		priority:      priority,
	}
}

type connectorResult struct {
	index      int
	candidates []models.Candidate
	err        error
	elapsed    time.Duration
}

// Aggregate queries all connectors concurrently and returns the merged,
// deterministically ranked result. Connectors still running at the
// deadline are abandoned and reported as degraded.
func (a *Aggregator) Aggregate(ctx context.Context, q source.Query) *models.AggregatedResult {
	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	// Buffered so abandoned connectors can finish without leaking.
	resultCh := make(chan connectorResult, len(a.connectors))

	for i, conn := range a.connectors {
		go func(index int, conn source.Connector) {
			start := time.Now()
			candidates, err := conn.Query(ctx, q)
			resultCh <- connectorResult{
				index:      index,
				candidates: candidates,
				err:        err,
				elapsed:    time.Since(start),
			}
		}(i, conn)
	}

	results := make([]connectorResult, len(a.connectors))
	received := make([]bool, len(a.connectors))

	pending := len(a.connectors)
collect:
	for pending > 0 {
		select {
		case r := <-resultCh:
			results[r.index] = r
			received[r.index] = true
			pending--
		case <-ctx.Done():
			break collect
		}
	}

	// Scoop up results that were already delivered when the deadline hit.
	for pending > 0 {
		select {
		case r := <-resultCh:
			results[r.index] = r
			received[r.index] = true
			pending--
		default:
			pending = 0
		}
	}

	statuses := make([]models.SourceStatus, len(a.connectors))
	var collected []models.Candidate

	for i, conn := range a.connectors {
		id := conn.ID()

		if !received[i] {
			statuses[i] = models.SourceStatus{
				Source:   id,
				Degraded: true,
				Error:    source.ErrTimeout.Error(),
			}
			observability.SourceDegraded.WithLabelValues(id, "timeout").Inc()
			slog.Warn("source abandoned at deadline", "source", id)
			continue
		}

		r := results[i]
		observability.SourceQueryDuration.WithLabelValues(id).Observe(r.elapsed.Seconds())

		if r.err != nil {
			statuses[i] = models.SourceStatus{
				Source:    id,
				Degraded:  true,
				Error:     r.err.Error(),
				ElapsedMS: r.elapsed.Milliseconds(),
			}
			observability.SourceDegraded.WithLabelValues(id, degradeReason(r.err)).Inc()
			slog.Warn("source failed", "source", id, "error", r.err)
			continue
		}

		statuses[i] = models.SourceStatus{
			Source:     id,
			Candidates: len(r.candidates),
			ElapsedMS:  r.elapsed.Milliseconds(),
		}
		observability.CandidatesReturned.WithLabelValues(id).Observe(float64(len(r.candidates)))
		collected = append(collected, r.candidates...)
	}

	merged := mergeCandidates(collected, a.nameThreshold)
	a.rank(merged)

	total := len(merged)
	if len(merged) > a.maxResults {
		merged = merged[:a.maxResults]
	}

	return &models.AggregatedResult{
		Candidates:   merged,
		Sources:      statuses,
		TotalMatches: total,
	}
}

// rank sorts candidates by score descending, breaking ties by configured
// source priority and then first-seen order (the sort is stable, so the
// pre-sort collection order is the final tie-break).
func (a *Aggregator) rank(candidates []models.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return a.priorityOf(candidates[i].Source) < a.priorityOf(candidates[j].Source)
	})
}

func (a *Aggregator) priorityOf(id string) int {
	if p, ok := a.priority[id]; ok {
		return p
	}
	return int(^uint(0) >> 1) // unknown sources rank last
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, source.ErrTimeout):
		return "timeout"
	case errors.Is(err, source.ErrRateLimited):
		return "rate_limited"
	default:
		return "unavailable"
	}
}
