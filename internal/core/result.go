package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Record maps a field name to its decoded value: a string, a []string for
// multi-value fields, or a JSON value (map[string]any, []any, json.Number,
// string, bool). Fields with empty values are never present.
type Record map[string]any

// Table is an ordered list of records sharing a schema.
type Table struct {
	Name    string
	Records []Record
}

// SegmentWarning describes a segment that was skipped because it could not
// be parsed. Warnings never abort an extraction.
type SegmentWarning struct {
	Segment int // Index of the segment among all sentinel-separated pieces
	Table   string
	Err     error
}

func (w SegmentWarning) Error() string {
	if w.Table != "" {
		return fmt.Sprintf("segment %d (%s) skipped: %v", w.Segment, w.Table, w.Err)
	}
	return fmt.Sprintf("segment %d skipped: %v", w.Segment, w.Err)
}

func (w SegmentWarning) Unwrap() error {
	return w.Err
}

// Result is the outcome of decoding one backup.
type Result struct {
	RunID    uuid.UUID
	Tables   []*Table // In order of first appearance in the plaintext
	Warnings []SegmentWarning
}

// Table returns the table with the given name.
func (r *Result) Table(name string) (*Table, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Names returns table names in order of first appearance.
func (r *Result) Names() []string {
	names := make([]string, len(r.Tables))
	for i, t := range r.Tables {
		names[i] = t.Name
	}
	return names
}

// RecordCount returns the total number of records across all tables.
func (r *Result) RecordCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Records)
	}
	return n
}

// appendRecords adds records to the named table, creating it on first use.
func (r *Result) appendRecords(name string, records []Record) {
	if t, ok := r.Table(name); ok {
		t.Records = append(t.Records, records...)
		return
	}
	r.Tables = append(r.Tables, &Table{Name: name, Records: records})
}
