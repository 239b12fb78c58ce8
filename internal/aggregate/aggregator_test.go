package aggregate

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/internal/source"
)

type fakeConnector struct {
	id         string
	candidates []models.Candidate
	err        error
	delay      time.Duration
}

func (f *fakeConnector) ID() string { return f.id }

func (f *fakeConnector) Query(ctx context.Context, q source.Query) ([]models.Candidate, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, source.ErrTimeout
		case <-time.After(f.delay):
		}
	}
	return f.candidates, f.err
}

func newAggregator(deadline time.Duration, maxResults int, connectors ...source.Connector) *Aggregator {
	srcCfgs := make([]config.SourceConfig, len(connectors))
	for i, c := range connectors {
		srcCfgs[i] = config.SourceConfig{ID: c.ID(), Priority: i}
	}
	return New(config.AggregationConfig{
		Deadline:      deadline,
		MaxResults:    maxResults,
		NameThreshold: 0.9,
	}, srcCfgs, connectors)
}

func candidate(src, ref string, score float64) models.Candidate {
	return models.Candidate{Source: src, Reference: ref, Score: score}
}

func TestAggregateCollectsFromAllSources(t *testing.T) {
	a := newAggregator(time.Second, 50,
		&fakeConnector{id: "s1", candidates: []models.Candidate{candidate("s1", "u1", 90)}},
		&fakeConnector{id: "s2", candidates: []models.Candidate{candidate("s2", "u2", 80)}},
	)

	res := a.Aggregate(context.Background(), source.Query{Embedding: []float32{0.1}})

	if res.TotalMatches != 2 {
		t.Fatalf("expected 2 total matches, got %d", res.TotalMatches)
	}
	if len(res.DegradedSources()) != 0 {
		t.Errorf("expected no degraded sources, got %v", res.DegradedSources())
	}
	if res.Candidates[0].Reference != "u1" || res.Candidates[1].Reference != "u2" {
		t.Errorf("unexpected rank order: %+v", res.Candidates)
	}
}

func TestAggregateSlowSourceIsDegradedNotFatal(t *testing.T) {
	a := newAggregator(100*time.Millisecond, 50,
		&fakeConnector{id: "fast1", candidates: []models.Candidate{candidate("fast1", "a", 70)}},
		&fakeConnector{id: "fast2", candidates: []models.Candidate{candidate("fast2", "b", 60)}},
		&fakeConnector{id: "slow", delay: 5 * time.Second, candidates: []models.Candidate{candidate("slow", "c", 99)}},
	)

	start := time.Now()
	res := a.Aggregate(context.Background(), source.Query{Embedding: []float32{0.1}})
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("aggregate did not honour deadline, took %s", elapsed)
	}
	if res.TotalMatches != 2 {
		t.Errorf("expected 2 matches from responsive sources, got %d", res.TotalMatches)
	}
	degraded := res.DegradedSources()
	if !reflect.DeepEqual(degraded, []string{"slow"}) {
		t.Errorf("expected degraded = [slow], got %v", degraded)
	}
}

func TestAggregateAllSourcesTimeOut(t *testing.T) {
	a := newAggregator(50*time.Millisecond, 50,
		&fakeConnector{id: "s1", delay: time.Second},
		&fakeConnector{id: "s2", delay: time.Second},
	)

	start := time.Now()
	res := a.Aggregate(context.Background(), source.Query{})
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Fatalf("expected return near deadline, took %s", elapsed)
	}
	if res.TotalMatches != 0 {
		t.Errorf("expected 0 matches, got %d", res.TotalMatches)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(res.Candidates))
	}
	if len(res.DegradedSources()) != 2 {
		t.Errorf("expected both sources degraded, got %v", res.DegradedSources())
	}
}

func TestAggregateFailedSourceIsAbsorbed(t *testing.T) {
	a := newAggregator(time.Second, 50,
		&fakeConnector{id: "ok", candidates: []models.Candidate{candidate("ok", "u", 50)}},
		&fakeConnector{id: "broken", err: source.ErrUnavailable},
		&fakeConnector{id: "limited", err: source.ErrRateLimited},
	)

	res := a.Aggregate(context.Background(), source.Query{})

	if res.TotalMatches != 1 {
		t.Errorf("expected 1 match, got %d", res.TotalMatches)
	}
	if got := res.DegradedSources(); len(got) != 2 {
		t.Errorf("expected 2 degraded sources, got %v", got)
	}
}

func TestAggregateMergesSameSourceReference(t *testing.T) {
	// Same (source id, reference) from two connector instances sharing an
	// id must keep the higher score.
	a := newAggregator(time.Second, 50,
		&fakeConnector{id: "s1", candidates: []models.Candidate{
			{Source: "s1", Reference: "https://p.example/x", Score: 80, Metadata: map[string]string{"alt_text": "hit one"}},
			{Source: "s1", Reference: "https://p.example/x", Score: 92, Metadata: map[string]string{"image_url": "https://img.example/x.jpg"}},
		}},
	)

	res := a.Aggregate(context.Background(), source.Query{})

	if res.TotalMatches != 1 {
		t.Fatalf("expected 1 merged match, got %d", res.TotalMatches)
	}
	got := res.Candidates[0]
	if got.Score != 92 {
		t.Errorf("expected merged score 92, got %f", got.Score)
	}
	if got.Metadata["alt_text"] != "hit one" || got.Metadata["image_url"] != "https://img.example/x.jpg" {
		t.Errorf("expected metadata union, got %v", got.Metadata)
	}
}

func TestAggregateMergesCrossSourceByProfileName(t *testing.T) {
	a := newAggregator(time.Second, 50,
		&fakeConnector{id: "s1", candidates: []models.Candidate{
			{Source: "s1", Reference: "https://a.example/1", Score: 75, Platform: "facebook", ProfileName: "Jane Doe"},
		}},
		&fakeConnector{id: "s2", candidates: []models.Candidate{
			{Source: "s2", Reference: "https://b.example/2", Score: 88, Platform: "Facebook", ProfileName: "Jane Doé"},
			{Source: "s2", Reference: "https://b.example/3", Score: 70, Platform: "instagram", ProfileName: "Jane Doe"},
		}},
	)

	res := a.Aggregate(context.Background(), source.Query{})

	// Same platform + near-identical name merge; different platform stays.
	if res.TotalMatches != 2 {
		t.Fatalf("expected 2 matches after cross-source merge, got %d: %+v", res.TotalMatches, res.Candidates)
	}
	if res.Candidates[0].Score != 88 {
		t.Errorf("expected merged candidate to keep score 88, got %f", res.Candidates[0].Score)
	}
}

func TestAggregateRankDeterminism(t *testing.T) {
	connectors := []source.Connector{
		&fakeConnector{id: "s1", candidates: []models.Candidate{
			candidate("s1", "a", 90),
			candidate("s1", "b", 90),
		}},
		&fakeConnector{id: "s2", candidates: []models.Candidate{
			candidate("s2", "c", 90),
			candidate("s2", "d", 95),
		}},
	}
	a := newAggregator(time.Second, 50, connectors...)

	first := a.Aggregate(context.Background(), source.Query{})
	for run := 0; run < 10; run++ {
		again := a.Aggregate(context.Background(), source.Query{})
		if !reflect.DeepEqual(first.Candidates, again.Candidates) {
			t.Fatalf("run %d produced different order:\n%+v\nvs\n%+v", run, first.Candidates, again.Candidates)
		}
	}

	// Highest score first, then ties in source priority order (s1 before s2),
	// then first-seen order within a source.
	wantRefs := []string{"d", "a", "b", "c"}
	for i, want := range wantRefs {
		if first.Candidates[i].Reference != want {
			t.Errorf("position %d: expected %s, got %s", i, want, first.Candidates[i].Reference)
		}
	}
}

func TestAggregateCapsResultsButCountsAll(t *testing.T) {
	many := make([]models.Candidate, 20)
	for i := range many {
		many[i] = candidate("s1", string(rune('a'+i)), float64(100-i))
	}
	a := newAggregator(time.Second, 5, &fakeConnector{id: "s1", candidates: many})

	res := a.Aggregate(context.Background(), source.Query{})

	if len(res.Candidates) != 5 {
		t.Errorf("expected capped 5 candidates, got %d", len(res.Candidates))
	}
	if res.TotalMatches != 20 {
		t.Errorf("expected total 20 before cap, got %d", res.TotalMatches)
	}
}

func TestAggregateEmptySourcesIsNotAnError(t *testing.T) {
	a := newAggregator(time.Second, 50,
		&fakeConnector{id: "s1"},
		&fakeConnector{id: "s2"},
	)

	res := a.Aggregate(context.Background(), source.Query{})

	if res.TotalMatches != 0 {
		t.Errorf("expected 0 matches, got %d", res.TotalMatches)
	}
	if len(res.DegradedSources()) != 0 {
		t.Errorf("zero results must not be degraded: %v", res.DegradedSources())
	}
}

func TestAggregateRespectsCallerContext(t *testing.T) {
	a := newAggregator(10*time.Second, 50,
		&fakeConnector{id: "slow", delay: 5 * time.Second},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := a.Aggregate(ctx, source.Query{})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected prompt return on caller cancellation, took %s", elapsed)
	}
	if len(res.DegradedSources()) != 1 {
		t.Errorf("expected slow source degraded, got %v", res.DegradedSources())
	}
}
