package aggregate

import (
	"testing"

	"github.com/your-org/facesearch/internal/models"
)

func TestMergePreservesFirstSeenOrder(t *testing.T) {
	in := []models.Candidate{
		{Source: "s1", Reference: "a", Score: 10},
		{Source: "s1", Reference: "b", Score: 20},
		{Source: "s2", Reference: "c", Score: 30},
	}

	out := mergeCandidates(in, 0.9)

	if len(out) != 3 {
		t.Fatalf("expected 3 distinct candidates, got %d", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].Reference != want {
			t.Errorf("position %d: expected %s, got %s", i, want, out[i].Reference)
		}
	}
}

func TestMergeMetadataFirstSeenWinsConflicts(t *testing.T) {
	in := []models.Candidate{
		{Source: "s1", Reference: "x", Score: 50, Metadata: map[string]string{"location": "Prague"}},
		{Source: "s1", Reference: "x", Score: 40, Metadata: map[string]string{"location": "Brno", "verified": "true"}},
	}

	out := mergeCandidates(in, 0.9)

	if len(out) != 1 {
		t.Fatalf("expected merge to 1 candidate, got %d", len(out))
	}
	if out[0].Metadata["location"] != "Prague" {
		t.Errorf("first-seen metadata must win: got %q", out[0].Metadata["location"])
	}
	if out[0].Metadata["verified"] != "true" {
		t.Errorf("missing unioned key: %v", out[0].Metadata)
	}
	if out[0].Score != 50 {
		t.Errorf("expected max score 50 kept, got %f", out[0].Score)
	}
}

func TestMergeDoesNotMutateInputMetadata(t *testing.T) {
	first := map[string]string{"k": "v"}
	in := []models.Candidate{
		{Source: "s1", Reference: "x", Metadata: first},
		{Source: "s1", Reference: "x", Metadata: map[string]string{"extra": "1"}},
	}

	mergeCandidates(in, 0.9)

	if len(first) != 1 {
		t.Errorf("connector-owned metadata was mutated: %v", first)
	}
}

func TestMergeCrossSourceRequiresSamePlatform(t *testing.T) {
	in := []models.Candidate{
		{Source: "s1", Reference: "a", Platform: "facebook", ProfileName: "Jane Doe", Score: 80},
		{Source: "s2", Reference: "b", Platform: "instagram", ProfileName: "Jane Doe", Score: 85},
	}

	out := mergeCandidates(in, 0.9)

	if len(out) != 2 {
		t.Fatalf("different platforms must not merge, got %d candidates", len(out))
	}
}

func TestMergeCrossSourceIgnoresEmptyNames(t *testing.T) {
	in := []models.Candidate{
		{Source: "s1", Reference: "a", Platform: "facebook", Score: 80},
		{Source: "s2", Reference: "b", Platform: "facebook", Score: 85},
	}

	out := mergeCandidates(in, 0.9)

	if len(out) != 2 {
		t.Fatalf("nameless candidates must not merge cross-source, got %d", len(out))
	}
}

func TestMergeExactReferenceWinsOverEarlierNameMatch(t *testing.T) {
	// The third candidate name-matches the first entry (cross-source, same
	// platform) but shares (source, reference) with the second, a nameless
	// hit that could not merge on its own. The reference rule must win
	// regardless of position, otherwise two merged entries would end up
	// sharing one (source, reference).
	in := []models.Candidate{
		{Source: "s1", Reference: "a", Platform: "facebook", ProfileName: "Jane Doe", Score: 60},
		{Source: "s2", Reference: "b", Platform: "facebook", Score: 70},
		{Source: "s2", Reference: "b", Platform: "facebook", ProfileName: "Jane Doe", Score: 95},
	}

	out := mergeCandidates(in, 0.9)

	if len(out) != 2 {
		t.Fatalf("expected 2 candidates after merge, got %d", len(out))
	}
	if out[1].Source != "s2" || out[1].Reference != "b" {
		t.Fatalf("second entry should keep (s2, b), got (%s, %s)", out[1].Source, out[1].Reference)
	}
	if out[1].Score != 95 {
		t.Errorf("exact twin must absorb the max score: got %f", out[1].Score)
	}
	if out[0].Score != 60 {
		t.Errorf("name-matching entry must be untouched: got %f", out[0].Score)
	}
}

func TestMergeSameSourceNeverMergesByName(t *testing.T) {
	// Two distinct references from one source are distinct hits even when
	// the profile names match.
	in := []models.Candidate{
		{Source: "s1", Reference: "a", Platform: "facebook", ProfileName: "Jane Doe", Score: 80},
		{Source: "s1", Reference: "b", Platform: "facebook", ProfileName: "Jane Doe", Score: 85},
	}

	out := mergeCandidates(in, 0.9)

	if len(out) != 2 {
		t.Fatalf("same-source candidates with distinct references must stay separate, got %d", len(out))
	}
}
