package vision

import (
	"errors"
	"math"
	"testing"
)

func TestCompareIdenticalEncodings(t *testing.T) {
	enc := []float32{0.6, 0.8}

	cmp, err := CompareEmbeddings(enc, enc, 0.6)
	if err != nil {
		t.Fatalf("CompareEmbeddings failed: %v", err)
	}
	if !cmp.IsMatch {
		t.Error("identical encodings must match")
	}
	if math.Abs(cmp.Similarity-100) > 1e-6 {
		t.Errorf("expected similarity 100, got %f", cmp.Similarity)
	}
	if math.Abs(cmp.Distance) > 1e-6 {
		t.Errorf("expected distance 0, got %f", cmp.Distance)
	}
	if cmp.Confidence != "high" {
		t.Errorf("expected high confidence, got %q", cmp.Confidence)
	}
}

func TestCompareOrthogonalEncodings(t *testing.T) {
	cmp, err := CompareEmbeddings([]float32{1, 0}, []float32{0, 1}, 0.6)
	if err != nil {
		t.Fatalf("CompareEmbeddings failed: %v", err)
	}
	if cmp.IsMatch {
		t.Error("orthogonal encodings must not match")
	}
	if cmp.Similarity != 0 {
		t.Errorf("expected similarity 0, got %f", cmp.Similarity)
	}
	if cmp.Confidence != "low" {
		t.Errorf("expected low confidence, got %q", cmp.Confidence)
	}
}

func TestCompareOppositeEncodingsClampToZero(t *testing.T) {
	cmp, err := CompareEmbeddings([]float32{1, 0}, []float32{-1, 0}, 0.6)
	if err != nil {
		t.Fatalf("CompareEmbeddings failed: %v", err)
	}
	if cmp.Similarity != 0 {
		t.Errorf("negative similarity must clamp to 0, got %f", cmp.Similarity)
	}
	if math.Abs(cmp.Distance-2) > 1e-6 {
		t.Errorf("expected distance 2, got %f", cmp.Distance)
	}
}

func TestCompareThresholdBoundary(t *testing.T) {
	// cos(a, b) = 3/5: a along x, b at (3, 4). Integer components keep
	// the arithmetic exact through the float32 round-trip.
	cmp, err := CompareEmbeddings([]float32{1, 0}, []float32{3, 4}, 0.6)
	if err != nil {
		t.Fatalf("CompareEmbeddings failed: %v", err)
	}
	if !cmp.IsMatch {
		t.Error("similarity equal to the threshold must count as a match")
	}
	if cmp.Confidence != "low" {
		t.Errorf("60%% sits in the low band, got %q", cmp.Confidence)
	}
}

func TestCompareRejectsBadEncodings(t *testing.T) {
	cases := []struct {
		name  string
		known []float32
		unk   []float32
	}{
		{"empty", nil, nil},
		{"length mismatch", []float32{1, 0}, []float32{1}},
		{"zero magnitude", []float32{0, 0}, []float32{1, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := CompareEmbeddings(tc.known, tc.unk, 0.6); !errors.Is(err, ErrBadEncoding) {
				t.Errorf("expected ErrBadEncoding, got %v", err)
			}
		})
	}
}
