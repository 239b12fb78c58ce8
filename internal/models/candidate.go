package models

// Candidate is one external-source hit for a face or name query.
type Candidate struct {
	Source      string            `json:"source"`
	Reference   string            `json:"reference"` // URL or profile reference
	Score       float64           `json:"score"`     // normalized 0-100
	Platform    string            `json:"platform,omitempty"`
	ProfileName string            `json:"profile_name,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SourceStatus reports how one connector fared during an aggregation.
type SourceStatus struct {
	Source     string `json:"source"`
	Candidates int    `json:"candidates"`
	Degraded   bool   `json:"degraded"`
	Error      string `json:"error,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// AggregatedResult is the merged, ranked output of one fan-out search.
// It is immutable once constructed; TotalMatches counts unique candidates
// before the result cap was applied.
type AggregatedResult struct {
	Candidates   []Candidate    `json:"candidates"`
	Sources      []SourceStatus `json:"sources"`
	TotalMatches int            `json:"total_matches"`
}

// DegradedSources lists the ids of sources that failed or timed out.
func (r *AggregatedResult) DegradedSources() []string {
	var out []string
	for _, s := range r.Sources {
		if s.Degraded {
			out = append(out, s.Source)
		}
	}
	return out
}
