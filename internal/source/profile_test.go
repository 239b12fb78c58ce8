package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/your-org/facesearch/internal/config"
)

func profileConfig(endpoint string) config.SourceConfig {
	return config.SourceConfig{
		ID:       "social",
		Kind:     "profile_search",
		Endpoint: endpoint,
		Timeout:  2 * time.Second,
		Enabled:  true,
	}
}

func TestProfileSearchQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Jane Doe" {
			t.Errorf("expected q=Jane Doe, got %q", got)
		}
		w.Write([]byte(`{"profiles":[
			{"platform":"facebook","profile_url":"https://fb.example/jane","profile_name":"Jane Doe","match_score":92,"verified":true,"location":"Oslo"}
		]}`))
	}))
	defer srv.Close()

	c := NewProfileSearch(profileConfig(srv.URL))

	candidates, err := c.Query(context.Background(), Query{Name: "Jane Doe"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	got := candidates[0]
	if got.Platform != "facebook" || got.ProfileName != "Jane Doe" || got.Score != 92 {
		t.Errorf("unexpected candidate: %+v", got)
	}
	if got.Metadata["verified"] != "true" || got.Metadata["location"] != "Oslo" {
		t.Errorf("unexpected metadata: %v", got.Metadata)
	}
}

func TestProfileSearchFallsBackToHints(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query().Get("q")
		w.Write([]byte(`{"profiles":[]}`))
	}))
	defer srv.Close()

	c := NewProfileSearch(profileConfig(srv.URL))

	if _, err := c.Query(context.Background(), Query{Hints: "person face identification"}); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if seen != "person face identification" {
		t.Errorf("expected hints used as query, got %q", seen)
	}
}

func TestProfileSearchNoTextIsEmptySuccess(t *testing.T) {
	c := NewProfileSearch(profileConfig("http://unused.invalid"))

	candidates, err := c.Query(context.Background(), Query{Embedding: []float32{0.5}})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if candidates != nil {
		t.Errorf("expected nil candidates, got %v", candidates)
	}
}

func TestProfileSearchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewProfileSearch(profileConfig(srv.URL))

	_, err := c.Query(context.Background(), Query{Name: "anyone"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
