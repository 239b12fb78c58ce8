package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/models"
)

// ProfileSearch queries a public-profile search API by name or text hint.
// It replaces the ad hoc HTML scraping approach with an explicit contract:
// per-query timeout, bounded retry, and a clean error taxonomy.
type ProfileSearch struct {
	id       string
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

type profileSearchResponse struct {
	Profiles []struct {
		Platform    string  `json:"platform"`
		ProfileURL  string  `json:"profile_url"`
		ProfileName string  `json:"profile_name"`
		ImageURL    string  `json:"image_url"`
		MatchScore  float64 `json:"match_score"`
		Verified    bool    `json:"verified"`
		Location    string  `json:"location"`
	} `json:"profiles"`
}

func NewProfileSearch(cfg config.SourceConfig) *ProfileSearch {
	return &ProfileSearch{
		id:       cfg.ID,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		client:   &http.Client{},
	}
}

func (s *ProfileSearch) ID() string {
	return s.id
}

// Query looks up public profiles matching the query's name or hints.
// Without any text to search on the result is empty, not an error.
func (s *ProfileSearch) Query(ctx context.Context, q Query) ([]models.Candidate, error) {
	term := strings.TrimSpace(q.Name)
	if term == "" {
		term = strings.TrimSpace(q.Hints)
	}
	if term == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := doWithRetry(ctx, s.client, func() (*http.Request, error) {
		u, err := url.Parse(s.endpoint)
		if err != nil {
			return nil, err
		}
		vals := u.Query()
		vals.Set("q", term)
		vals.Set("limit", "50")
		u.RawQuery = vals.Encode()

		req, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
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

	var parsed profileSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, wrapErr(s.id, ErrUnavailable, err)
	}

	candidates := make([]models.Candidate, 0, len(parsed.Profiles))
	for _, p := range parsed.Profiles {
		if p.ProfileURL == "" {
			continue
		}
		meta := map[string]string{}
		if p.ImageURL != "" {
			meta["image_url"] = p.ImageURL
		}
		if p.Location != "" {
			meta["location"] = p.Location
		}
		if p.Verified {
			meta["verified"] = "true"
		}
		candidates = append(candidates, models.Candidate{
			Source:      s.id,
			Reference:   p.ProfileURL,
			Score:       clampScore(p.MatchScore),
			Platform:    p.Platform,
			ProfileName: p.ProfileName,
			Metadata:    meta,
		})
	}

	return candidates, nil
}

func (s *ProfileSearch) classify(err error) error {
	switch {
	case errors.Is(err, ErrTimeout):
		return wrapErr(s.id, ErrTimeout, nil)
	case errors.Is(err, ErrRateLimited):
		return wrapErr(s.id, ErrRateLimited, nil)
	default:
		return wrapErr(s.id, ErrUnavailable, err)
	}
}
