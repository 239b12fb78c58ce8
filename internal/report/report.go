// Package report renders a completed search into a self-contained HTML
// document suitable for printing or attaching to a case file.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/your-org/facesearch/internal/models"
)

// Officer identifies who requested the export. All fields are optional
// and rendered only when present.
type Officer struct {
	Name        string
	BadgeNumber string
	Department  string
	Country     string
	CaseNumber  string
}

// Builder renders reports from a parsed template. Safe for concurrent use.
type Builder struct {
	tmpl *template.Template
}

func NewBuilder() (*Builder, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"fmtScore": func(s float64) string { return fmt.Sprintf("%.1f", s) },
		"fmtTime":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
	}).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Builder{tmpl: tmpl}, nil
}

type metadataEntry struct {
	Key   string
	Value string
}

type candidateView struct {
	Rank        int
	Source      string
	Reference   string
	Score       float64
	Platform    string
	ProfileName string
	Metadata    []metadataEntry
}

type reportData struct {
	Record     *models.SearchRecord
	Officer    Officer
	Candidates []candidateView
	Sources    []models.SourceStatus
	Total      int
	Degraded   []string
	Generated  time.Time
}

// Build renders the report. Output is deterministic for identical input:
// candidate order follows the archived result and metadata keys are
// sorted, so re-exporting a record yields byte-identical HTML apart from
// the generation timestamp.
func (b *Builder) Build(record *models.SearchRecord, result *models.AggregatedResult, officer Officer, now time.Time) ([]byte, error) {
	views := make([]candidateView, len(result.Candidates))
	for i, c := range result.Candidates {
		meta := make([]metadataEntry, 0, len(c.Metadata))
		for k, v := range c.Metadata {
			meta = append(meta, metadataEntry{Key: k, Value: v})
		}
		sort.Slice(meta, func(a, b int) bool { return meta[a].Key < meta[b].Key })

		views[i] = candidateView{
			Rank:        i + 1,
			Source:      c.Source,
			Reference:   c.Reference,
			Score:       c.Score,
			Platform:    c.Platform,
			ProfileName: c.ProfileName,
			Metadata:    meta,
		}
	}

	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, reportData{
		Record:     record,
		Officer:    officer,
		Candidates: views,
		Sources:    result.Sources,
		Total:      result.TotalMatches,
		Degraded:   result.DegradedSources(),
		Generated:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Search Report {{.Record.ID}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #1a1a1a; }
h1 { font-size: 1.4rem; border-bottom: 2px solid #333; padding-bottom: .4rem; }
h2 { font-size: 1.1rem; margin-top: 1.6rem; }
table { border-collapse: collapse; width: 100%; margin-top: .6rem; }
th, td { border: 1px solid #ccc; padding: .35rem .6rem; text-align: left; font-size: .85rem; }
th { background: #f0f0f0; }
.degraded { color: #a33; }
.meta { color: #555; font-size: .8rem; }
footer { margin-top: 2rem; font-size: .75rem; color: #777; }
</style>
</head>
<body>
<h1>Identity Search Report</h1>

<table>
<tr><th>Record</th><td>{{.Record.ID}}</td></tr>
<tr><th>Search type</th><td>{{.Record.SearchType}}</td></tr>
<tr><th>Performed</th><td>{{fmtTime .Record.CreatedAt}}</td></tr>
<tr><th>Requested by</th><td>{{.Record.UserID}}</td></tr>
{{if .Record.ImageHash}}<tr><th>Image hash (MD5)</th><td>{{.Record.ImageHash}}</td></tr>{{end}}
<tr><th>Faces detected</th><td>{{.Record.FacesDetected}}</td></tr>
<tr><th>Total matches</th><td>{{.Total}}</td></tr>
</table>

{{if or .Officer.Name .Officer.BadgeNumber .Officer.Department .Officer.Country .Officer.CaseNumber}}
<h2>Requesting Officer</h2>
<table>
{{if .Officer.Name}}<tr><th>Name</th><td>{{.Officer.Name}}</td></tr>{{end}}
{{if .Officer.BadgeNumber}}<tr><th>Badge number</th><td>{{.Officer.BadgeNumber}}</td></tr>{{end}}
{{if .Officer.Department}}<tr><th>Department</th><td>{{.Officer.Department}}</td></tr>{{end}}
{{if .Officer.Country}}<tr><th>Country</th><td>{{.Officer.Country}}</td></tr>{{end}}
{{if .Officer.CaseNumber}}<tr><th>Case number</th><td>{{.Officer.CaseNumber}}</td></tr>{{end}}
</table>
{{end}}

<h2>Source Status</h2>
<table>
<tr><th>Source</th><th>Candidates</th><th>Elapsed (ms)</th><th>Status</th></tr>
{{range .Sources}}
<tr>
<td>{{.Source}}</td>
<td>{{.Candidates}}</td>
<td>{{.ElapsedMS}}</td>
<td>{{if .Degraded}}<span class="degraded">degraded: {{.Error}}</span>{{else}}ok{{end}}</td>
</tr>
{{end}}
</table>

<h2>Candidates ({{len .Candidates}} shown)</h2>
{{if .Candidates}}
<table>
<tr><th>#</th><th>Score</th><th>Source</th><th>Platform</th><th>Profile</th><th>Reference</th><th>Details</th></tr>
{{range .Candidates}}
<tr>
<td>{{.Rank}}</td>
<td>{{fmtScore .Score}}</td>
<td>{{.Source}}</td>
<td>{{.Platform}}</td>
<td>{{.ProfileName}}</td>
<td>{{.Reference}}</td>
<td class="meta">{{range .Metadata}}{{.Key}}: {{.Value}}<br>{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No matches were found.</p>
{{end}}

{{if .Degraded}}
<p class="degraded">Partial results: sources {{range $i, $s := .Degraded}}{{if $i}}, {{end}}{{$s}}{{end}} did not respond in time.</p>
{{end}}

<footer>Generated {{fmtTime .Generated}}. Match scores are investigative leads, not identifications.</footer>
</body>
</html>
`
