// Package report renders decoded backups for people: Markdown and text
// reports, one CSV file per table, JSON, and an HTML page. It also renders
// Google Authenticator accounts.
//
// Every format carries the same content. Known tables come first in a fixed
// order (logins, identities, addresses, notes); other tables follow in the
// order they appeared in the backup.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Oracipher/Unsealer/internal/core"
)

// Format is an output format name as accepted on the command line.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatText, FormatCSV, FormatJSON, FormatHTML}

var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want md, txt, csv, json or html)", ErrUnknownFormat, s)
}

// IsDir reports whether the format writes a directory rather than a file.
func (f Format) IsDir() bool {
	return f == FormatCSV
}

// Options carries report metadata.
type Options struct {
	GeneratedAt time.Time // Shown in the report header; zero omits it
	Source      string    // Input file name, if any
}

const timeLayout = "2006-01-02 15:04:05"

// Write renders res to w in a single-stream format. CSV output spans several
// files and goes through WriteCSV instead.
func Write(ctx context.Context, w io.Writer, f Format, res *core.Result, opts Options) error {
	switch f {
	case FormatMarkdown:
		return writeMarkdown(w, res, opts)
	case FormatText:
		return writeText(w, res, opts)
	case FormatJSON:
		return writeJSON(w, res, opts)
	case FormatHTML:
		return HTML(res, opts).Render(ctx, w)
	case FormatCSV:
		return fmt.Errorf("csv output is a directory; use WriteCSV")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// Table names with dedicated formatting, in report order.
const (
	TableLogins     = "logins"
	TableIdentities = "identities"
	TableAddresses  = "addresses"
	TableNotes      = "notes"
)

var tableOrder = []string{TableLogins, TableIdentities, TableAddresses, TableNotes}

var displayNames = map[string]string{
	TableLogins:     "Logins",
	TableIdentities: "Identities",
	TableAddresses:  "Addresses",
	TableNotes:      "Secure notes",
}

// DisplayName returns the human-readable title of a table.
func DisplayName(table string) string {
	if name, ok := displayNames[table]; ok {
		return name
	}
	return "Other data (" + table + ")"
}

// OrderedTables returns the tables of res in report order.
func OrderedTables(res *core.Result) []*core.Table {
	out := make([]*core.Table, 0, len(res.Tables))
	for _, name := range tableOrder {
		if t, ok := res.Table(name); ok {
			out = append(out, t)
		}
	}
	for _, t := range res.Tables {
		if _, known := displayNames[t.Name]; !known {
			out = append(out, t)
		}
	}
	return out
}

// TableSummary is a one-line description of a decoded table.
type TableSummary struct {
	Name    string
	Display string
	Records int
}

// Summarize lists each table with its record count, in report order.
func Summarize(res *core.Result) []TableSummary {
	tables := OrderedTables(res)
	out := make([]TableSummary, len(tables))
	for i, t := range tables {
		out[i] = TableSummary{Name: t.Name, Display: DisplayName(t.Name), Records: len(t.Records)}
	}
	return out
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename replaces characters that are not allowed in file names
// on common file systems with '_'.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// DefaultOutput derives the output path for input: the input with its
// extension replaced by the format, or "<stem>_csv_export" for CSV.
func DefaultOutput(input string, f Format) string {
	dir := filepath.Dir(input)
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if f.IsDir() {
		return filepath.Join(dir, SanitizeFilename(stem)+"_csv_export")
	}
	return filepath.Join(dir, stem+"."+string(f))
}
