package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facesearch/internal/models"
)

func fixtureRecord() *models.SearchRecord {
	return &models.SearchRecord{
		ID:            uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		UserID:        "officer1",
		SearchType:    models.SearchTypeFaceUpload,
		FacesDetected: 1,
		TotalMatches:  2,
		ImageHash:     "d41d8cd98f00b204e9800998ecf8427e",
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func fixtureResult() *models.AggregatedResult {
	return &models.AggregatedResult{
		Candidates: []models.Candidate{
			{Source: "pimeyes", Reference: "https://a.example/1", Score: 91.5, Platform: "facebook", ProfileName: "Jane Doe",
				Metadata: map[string]string{"location": "Prague", "image_url": "https://img.example/1.jpg"}},
			{Source: "watchlist", Reference: "watchlist://persons/p1", Score: 87, Platform: "watchlist", ProfileName: "Jane D"},
		},
		Sources: []models.SourceStatus{
			{Source: "pimeyes", Candidates: 1, ElapsedMS: 412},
			{Source: "watchlist", Candidates: 1, ElapsedMS: 12},
			{Source: "social", Degraded: true, Error: "source timed out"},
		},
		TotalMatches: 2,
	}
}

func TestBuildReport(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	officer := Officer{
		Name:        "J. Novak",
		BadgeNumber: "B-1234",
		Department:  "Cybercrime Unit",
		Country:     "CZ",
		CaseNumber:  "2026/0042",
	}
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	html, err := b.Build(fixtureRecord(), fixtureResult(), officer, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out := string(html)
	for _, want := range []string{
		"11111111-2222-3333-4444-555555555555",
		"face_upload_analysis",
		"B-1234",
		"Cybercrime Unit",
		"2026/0042",
		"91.5",
		"Jane Doe",
		"watchlist://persons/p1",
		"degraded: source timed out",
		"location: Prague",
		"d41d8cd98f00b204e9800998ecf8427e",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestBuildReportDeterministic(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	first, err := b.Build(fixtureRecord(), fixtureResult(), Officer{}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := b.Build(fixtureRecord(), fixtureResult(), Officer{}, now)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d produced different output", i)
		}
	}
}

func TestBuildReportEmptyResult(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	rec := fixtureRecord()
	rec.TotalMatches = 0
	html, err := b.Build(rec, &models.AggregatedResult{}, Officer{}, time.Now())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(string(html), "No matches were found") {
		t.Error("empty result should render the no-matches notice")
	}
}

func TestBuildReportEscapesHTML(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	result := &models.AggregatedResult{
		Candidates: []models.Candidate{
			{Source: "s1", Reference: "x", Score: 50, ProfileName: "<script>alert(1)</script>"},
		},
		TotalMatches: 1,
	}
	html, err := b.Build(fixtureRecord(), result, Officer{}, time.Now())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Contains(string(html), "<script>alert(1)</script>") {
		t.Error("profile name was not escaped")
	}
}
