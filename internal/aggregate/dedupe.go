package aggregate

import (
	"strings"

	"github.com/your-org/facesearch/internal/models"
)

// mergeCandidates collapses duplicate identity hits while preserving
// first-seen order. Two candidates merge when they share (source,
// reference), or when they come from different sources but name the same
// platform and their normalized profile names are at least nameThreshold
// similar. A merge keeps the highest score and unions metadata, with the
// first-seen candidate winning key conflicts.
func mergeCandidates(candidates []models.Candidate, nameThreshold float64) []models.Candidate {
	merged := make([]models.Candidate, 0, len(candidates))

	for _, c := range candidates {
		idx := findDuplicate(merged, c, nameThreshold)
		if idx < 0 {
			// Copy the metadata map so merging never mutates connector output.
			if c.Metadata != nil {
				meta := make(map[string]string, len(c.Metadata))
				for k, v := range c.Metadata {
					meta[k] = v
				}
				c.Metadata = meta
			}
			merged = append(merged, c)
			continue
		}

		if c.Score > merged[idx].Score {
			merged[idx].Score = c.Score
		}
		for k, v := range c.Metadata {
			if merged[idx].Metadata == nil {
				merged[idx].Metadata = make(map[string]string)
			}
			if _, exists := merged[idx].Metadata[k]; !exists {
				merged[idx].Metadata[k] = v
			}
		}
	}

	return merged
}

// findDuplicate checks the reference rule against every entry before
// falling back to the name rule, so an exact (source, reference) twin
// always wins over an earlier cross-source name match.
func findDuplicate(merged []models.Candidate, c models.Candidate, nameThreshold float64) int {
	for i, m := range merged {
		if m.Source == c.Source && m.Reference == c.Reference {
			return i
		}
	}

	cPlatform := strings.ToLower(c.Platform)
	cName := NormalizeProfileName(c.ProfileName)
	if cPlatform == "" || cName == "" {
		return -1
	}

	for i, m := range merged {
		if m.Source == c.Source {
			continue
		}
		if strings.ToLower(m.Platform) != cPlatform {
			continue
		}
		if NameSimilarity(NormalizeProfileName(m.ProfileName), cName) >= nameThreshold {
			return i
		}
	}
	return -1
}
