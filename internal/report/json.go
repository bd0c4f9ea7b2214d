package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/Oracipher/Unsealer/internal/core"
)

// JSONReport is the JSON document for a decoded backup.
type JSONReport struct {
	RunID       string      `json:"run_id"`
	Source      string      `json:"source,omitempty"`
	GeneratedAt *time.Time  `json:"generated_at,omitempty"`
	Tables      []JSONTable `json:"tables"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// JSONTable is one table of a JSONReport.
type JSONTable struct {
	Name    string        `json:"name"`
	Title   string        `json:"title"`
	Records []core.Record `json:"records"`
}

// NewJSONReport builds the JSON document for res.
func NewJSONReport(res *core.Result, opts Options) JSONReport {
	doc := JSONReport{
		RunID:  res.RunID.String(),
		Source: opts.Source,
		Tables: make([]JSONTable, 0, len(res.Tables)),
	}
	if !opts.GeneratedAt.IsZero() {
		at := opts.GeneratedAt.UTC()
		doc.GeneratedAt = &at
	}

	for _, t := range OrderedTables(res) {
		doc.Tables = append(doc.Tables, JSONTable{Name: t.Name, Title: DisplayName(t.Name), Records: t.Records})
	}
	for _, w := range res.Warnings {
		doc.Warnings = append(doc.Warnings, w.Error())
	}
	return doc
}

func writeJSON(w io.Writer, res *core.Result, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(NewJSONReport(res, opts))
}
