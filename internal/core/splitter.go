package core

import "strings"

// TableSentinel separates independent tables in the decrypted plaintext.
const TableSentinel = "next_table"

// CellDelimiter separates cells within a row.
const CellDelimiter = ';'

// minSegmentDelimiters is the number of cell delimiters a piece needs before
// it is treated as a table rather than noise.
const minSegmentDelimiters = 2

// Segment is one table-shaped chunk of the plaintext.
type Segment struct {
	Index int    // Position among all sentinel-separated pieces, including discarded ones
	Text  string // Trimmed text: header row followed by data rows
}

// SplitSegments splits plaintext on TableSentinel and drops pieces that are
// empty or have fewer than two cell delimiters.
func SplitSegments(plaintext string) []Segment {
	pieces := strings.Split(plaintext, TableSentinel)

	segments := make([]Segment, 0, len(pieces))
	for i, piece := range pieces {
		text := strings.TrimSpace(piece)
		if strings.Count(text, string(CellDelimiter)) < minSegmentDelimiters {
			continue
		}
		segments = append(segments, Segment{Index: i, Text: text})
	}
	return segments
}
