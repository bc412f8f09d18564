package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/ibeckermayer/sentigraph/internal/tags"
)

// HTMLBuilder renders the HTML run report
type HTMLBuilder struct {
	maxTags  int
	template *template.Template
}

// NewHTML creates a new HTML report builder showing at most maxTags tags
func NewHTML(maxTags int) (*HTMLBuilder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &HTMLBuilder{
		maxTags:  maxTags,
		template: tmpl,
	}, nil
}

// htmlData is the template data structure
type htmlData struct {
	Title        string
	Date         string
	RunID        string
	Sources      []string
	Neutral      string
	Daily        [][]string
	Average      []string
	DailyHeaders []string
	Global       []string
	GlobalHead   []string
	Skipped      []string
	Notes        []noteData
	OtherNotes   []string
	Tags         []tagData
	Stats        statsData
}

type noteData struct {
	Date string
	Note string
}

type tagData struct {
	Tag   string
	Count int
}

// statsData contains ingestion statistics
type statsData struct {
	Records       int
	Read          int
	Replaced      int
	Skipped       int
	FailedSources int
	NeutralScored int
	Graphs        int
}

// Build renders the report page.
func (b *HTMLBuilder) Build(d Data) ([]byte, error) {
	data := htmlData{
		Title:        "Sentiment report",
		Date:         d.GeneratedAt.Format("Monday, January 2 2006 15:04"),
		RunID:        d.RunID,
		Sources:      d.Sources,
		Neutral:      "included in",
		DailyHeaders: DailyHeaders,
		Global:       GlobalRow(d.Result.Global),
		GlobalHead:   GlobalHeaders,
		Stats: statsData{
			Records:       d.Records,
			NeutralScored: d.Neutral,
			Graphs:        len(d.GraphFiles),
		},
	}
	rows := DailyRows(d.Result)
	data.Daily, data.Average = rows[:len(rows)-1], rows[len(rows)-1]
	if d.Result.ExcludeNeutral {
		data.Neutral = "excluded from"
	}
	if d.Ingest != nil {
		data.Stats.Read = d.Ingest.Read
		data.Stats.Replaced = d.Ingest.Replaced
		data.Stats.Skipped = len(d.Ingest.Skipped)
		data.Stats.FailedSources = len(d.Ingest.FailedSources)
	}
	for _, s := range d.SkippedDates() {
		data.Skipped = append(data.Skipped, s.String())
	}
	if d.Annotations != nil {
		for _, e := range d.Annotations.Entries {
			data.Notes = append(data.Notes, noteData{Date: e.Date.String(), Note: e.Note})
		}
		data.OtherNotes = d.Annotations.Other
	}
	for _, t := range tags.Top(d.Tags, b.maxTags) {
		data.Tags = append(data.Tags, tagData{Tag: t.Tag, Count: t.Count})
	}

	var buf bytes.Buffer
	if err := b.template.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the report to path.
func (b *HTMLBuilder) Write(path string, d Data) error {
	page, err := b.Build(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	return os.WriteFile(path, page, 0644)
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 860px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #1da1f2; margin-bottom: 5px; }
        h2 { color: #333; margin-top: 28px; }
        .date { color: #666; margin-bottom: 20px; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border-bottom: 1px solid #eee; padding: 6px 10px; text-align: right; }
        th:first-child, td:first-child { text-align: left; }
        tr.average td { font-weight: bold; border-top: 2px solid #ccc; }
        .muted { color: #666; font-size: 13px; }
        .tag { background: #e8f5fd; color: #1da1f2; padding: 2px 8px; border-radius: 12px; font-size: 12px; margin-right: 5px; display: inline-block; margin-bottom: 4px; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}{{if .RunID}} · run {{.RunID}}{{end}}</div>
        <div class="muted">Neutral records {{.Neutral}} statistics.</div>

        <h2>Daily sentiment</h2>
        <table>
            <tr>{{range .DailyHeaders}}<th>{{.}}</th>{{end}}</tr>
            {{range .Daily}}
            <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
            {{end}}
            <tr class="average">{{range .Average}}<td>{{.}}</td>{{end}}</tr>
        </table>
        {{if .Skipped}}<p class="muted">No eligible records on: {{range $i, $d := .Skipped}}{{if $i}}, {{end}}{{$d}}{{end}}</p>{{end}}

        <h2>Influence vs sentiment</h2>
        <table>
            <tr>{{range .GlobalHead}}<th>{{.}}</th>{{end}}</tr>
            <tr>{{range .Global}}<td>{{.}}</td>{{end}}</tr>
        </table>

        {{if or .Notes .OtherNotes}}
        <h2>Notes</h2>
        <ul>
            {{range .Notes}}<li><strong>{{.Date}}</strong> {{.Note}}</li>{{end}}
            {{range .OtherNotes}}<li>{{.}}</li>{{end}}
        </ul>
        {{end}}

        {{if .Tags}}
        <h2>Hashtags</h2>
        <div>{{range .Tags}}<span class="tag">#{{.Tag}} {{.Count}}</span>{{end}}</div>
        {{end}}

        {{if .Sources}}
        <h2>Sources</h2>
        <ul class="muted">{{range .Sources}}<li>{{.}}</li>{{end}}</ul>
        {{end}}

        <div class="footer">
            {{.Stats.Records}} records ({{.Stats.Read}} read, {{.Stats.Replaced}} replaced, {{.Stats.Skipped}} skipped) · {{.Stats.NeutralScored}} neutral · {{.Stats.Graphs}} graphs{{if .Stats.FailedSources}} · {{.Stats.FailedSources}} sources failed{{end}} · Generated by sentigraph
        </div>
    </div>
</body>
</html>`
