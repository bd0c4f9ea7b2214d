package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Oracipher/Unsealer/internal/logging"
	"github.com/Oracipher/Unsealer/internal/schema"
)

// extractor turns plaintext segments into tables. It carries the unknown
// table counter for one plaintext and is not reused across calls.
type extractor struct {
	registry *schema.Registry
	unknown  int
	result   *Result
}

func newExtractor(registry *schema.Registry, result *Result) *extractor {
	return &extractor{registry: registry, result: result}
}

// run decodes every segment. Segments that fail to parse are recorded as
// warnings and skipped.
func (x *extractor) run(ctx context.Context, segments []Segment) {
	log := logging.FromContext(ctx)

	for _, seg := range segments {
		name, records, err := x.decodeSegment(seg)
		if err != nil {
			w := SegmentWarning{Segment: seg.Index, Table: name, Err: err}
			log.Warn("segment skipped", "segment", seg.Index, "table", name, "error", err)
			x.result.Warnings = append(x.result.Warnings, w)
			continue
		}
		if name == "" {
			continue
		}

		log.Debug("segment decoded", "segment", seg.Index, "table", name, "records", len(records))
		if len(records) > 0 {
			x.result.appendRecords(name, records)
		}
	}
}

// decodeSegment parses one segment and returns its table name and records.
// An empty name means the segment was discarded without error.
func (x *extractor) decodeSegment(seg Segment) (string, []Record, error) {
	r := newSegmentReader(seg.Text)

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read header row: %w", err)
	}

	sch, ok := x.registry.Match(headers)
	if !ok {
		if isPlaceholderHeader(headers) {
			return "", nil, nil
		}
		x.unknown++
		sch = schema.Fallback(x.unknown, headers)
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sch.Name, nil, fmt.Errorf("read row: %w", err)
		}

		if rec := decodeRow(sch, cellMap(headers, row)); len(rec) > 0 {
			records = append(records, rec)
		}
	}

	return sch.Name, records, nil
}

// newSegmentReader returns a CSV reader for ';'-separated rows with ragged
// row lengths allowed. A stray quote inside a cell is kept as literal text
// so that one odd value cannot cost the rest of the table.
func newSegmentReader(text string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = CellDelimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// cellMap pairs header names with row cells. Missing trailing cells are
// absent from the map; surplus cells are ignored. With duplicate headers the
// rightmost column wins.
func cellMap(headers, row []string) map[string]string {
	cells := make(map[string]string, len(headers))
	for i, h := range headers {
		if i >= len(row) {
			break
		}
		cells[h] = row[i]
	}
	return cells
}

// decodeRow builds a record from one row following the schema's directives.
func decodeRow(sch *schema.Schema, cells map[string]string) Record {
	rec := make(Record, len(sch.Fields))
	for _, f := range sch.Fields {
		raw, ok := cells[f.Name]
		if !ok {
			continue
		}

		decoded := DecodeBase64Value(raw)
		if decoded == "" {
			continue
		}

		value := decodeField(f.Encoding, decoded)
		if isEmptyValue(value) {
			continue
		}
		rec[f.Name] = value
	}
	return rec
}

// isPlaceholderHeader reports whether the header row is a single numeric
// cell (the exporter emits "24" for an empty table).
func isPlaceholderHeader(headers []string) bool {
	if len(headers) != 1 {
		return false
	}
	h := strings.TrimSpace(headers[0])
	if h == "" {
		return false
	}
	for _, c := range h {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
