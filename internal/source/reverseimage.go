package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/models"
)

// ReverseImage queries an external reverse-image search API with a face
// embedding and maps its visual-similarity hits onto Candidates.
type ReverseImage struct {
	id       string
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

type reverseImageRequest struct {
	Embedding []float32 `json:"embedding"`
	Hints     string    `json:"hints,omitempty"`
	Limit     int       `json:"limit"`
}

type reverseImageResponse struct {
	Matches []struct {
		Similarity  float64 `json:"similarity"`
		SourceURL   string  `json:"source_url"`
		Platform    string  `json:"platform"`
		ProfileName string  `json:"profile_name"`
		ImageURL    string  `json:"image_url"`
		AltText     string  `json:"alt_text"`
	} `json:"matches"`
}

func NewReverseImage(cfg config.SourceConfig) *ReverseImage {
	return &ReverseImage{
		id:       cfg.ID,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		client:   &http.Client{},
	}
}

func (s *ReverseImage) ID() string {
	return s.id
}

// Query posts the embedding and returns visual matches. A face-free query
// (no embedding) is a successful empty result, not an error.
func (s *ReverseImage) Query(ctx context.Context, q Query) ([]models.Candidate, error) {
	if len(q.Embedding) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(reverseImageRequest{
		Embedding: q.Embedding,
		Hints:     q.Hints,
		Limit:     100,
	})
	if err != nil {
		return nil, wrapErr(s.id, ErrUnavailable, err)
	}

	resp, err := doWithRetry(ctx, s.client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, s.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wrapErr(s.id, ErrUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed reverseImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, wrapErr(s.id, ErrUnavailable, err)
	}

	candidates := make([]models.Candidate, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		if m.SourceURL == "" {
			continue
		}
		meta := map[string]string{}
		if m.ImageURL != "" {
			meta["image_url"] = m.ImageURL
		}
		if m.AltText != "" {
			meta["alt_text"] = m.AltText
		}
		candidates = append(candidates, models.Candidate{
			Source:      s.id,
			Reference:   m.SourceURL,
			Score:       clampScore(m.Similarity),
			Platform:    m.Platform,
			ProfileName: m.ProfileName,
			Metadata:    meta,
		})
	}

	return candidates, nil
}

func (s *ReverseImage) classify(err error) error {
	switch {
	case errors.Is(err, ErrTimeout):
		return wrapErr(s.id, ErrTimeout, nil)
	case errors.Is(err, ErrRateLimited):
		return wrapErr(s.id, ErrRateLimited, nil)
	default:
		return wrapErr(s.id, ErrUnavailable, err)
	}
}
