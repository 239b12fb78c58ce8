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

func reverseImageConfig(endpoint string, timeout time.Duration) config.SourceConfig {
	return config.SourceConfig{
		ID:       "revimg",
		Kind:     "reverse_image",
		Endpoint: endpoint,
		Timeout:  timeout,
		Enabled:  true,
	}
}

func TestReverseImageQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"matches":[
			{"similarity":95.5,"source_url":"https://social.example/profile/user123","platform":"facebook","profile_name":"Sample Profile","image_url":"https://img.example/1.jpg"},
			{"similarity":87.2,"source_url":"https://social.example/profile/user456","platform":"instagram","profile_name":"Another Profile","alt_text":"beach photo"}
		]}`))
	}))
	defer srv.Close()

	c := NewReverseImage(reverseImageConfig(srv.URL, 2*time.Second))

	candidates, err := c.Query(context.Background(), Query{Embedding: []float32{0.1, 0.2}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Score != 95.5 {
		t.Errorf("expected score 95.5, got %f", candidates[0].Score)
	}
	if candidates[0].Source != "revimg" {
		t.Errorf("expected source revimg, got %s", candidates[0].Source)
	}
	if candidates[1].Metadata["alt_text"] != "beach photo" {
		t.Errorf("expected alt_text metadata, got %v", candidates[1].Metadata)
	}
}

func TestReverseImageEmptyResultIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[]}`))
	}))
	defer srv.Close()

	c := NewReverseImage(reverseImageConfig(srv.URL, 2*time.Second))

	candidates, err := c.Query(context.Background(), Query{Embedding: []float32{0.1}})
	if err != nil {
		t.Fatalf("expected success on zero results, got %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected 0 candidates, got %d", len(candidates))
	}
}

func TestReverseImageNoEmbeddingIsEmptySuccess(t *testing.T) {
	c := NewReverseImage(reverseImageConfig("http://unused.invalid", time.Second))

	candidates, err := c.Query(context.Background(), Query{Name: "text only"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if candidates != nil {
		t.Errorf("expected nil candidates, got %v", candidates)
	}
}

func TestReverseImageRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewReverseImage(reverseImageConfig(srv.URL, 2*time.Second))

	_, err := c.Query(context.Background(), Query{Embedding: []float32{0.1}})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestReverseImageTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewReverseImage(reverseImageConfig(srv.URL, 50*time.Millisecond))

	start := time.Now()
	_, err := c.Query(context.Background(), Query{Embedding: []float32{0.1}})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took too long: %s", elapsed)
	}
}

func TestReverseImageRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"matches":[{"similarity":80,"source_url":"https://a.example/x"}]}`))
	}))
	defer srv.Close()

	c := NewReverseImage(reverseImageConfig(srv.URL, 5*time.Second))

	candidates, err := c.Query(context.Background(), Query{Embedding: []float32{0.1}})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if len(candidates) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(candidates))
	}
}

func TestReverseImagePersistentFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewReverseImage(reverseImageConfig(srv.URL, 5*time.Second))

	_, err := c.Query(context.Background(), Query{Embedding: []float32{0.1}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestReverseImageScoreClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[
			{"similarity":150,"source_url":"https://a.example/1"},
			{"similarity":-5,"source_url":"https://a.example/2"}
		]}`))
	}))
	defer srv.Close()

	c := NewReverseImage(reverseImageConfig(srv.URL, 2*time.Second))

	candidates, err := c.Query(context.Background(), Query{Embedding: []float32{0.1}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if candidates[0].Score != 100 || candidates[1].Score != 0 {
		t.Errorf("expected clamped scores 100 and 0, got %f and %f", candidates[0].Score, candidates[1].Score)
	}
}
