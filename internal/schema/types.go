// Package schema describes the table layouts found inside a decrypted
// Samsung Pass backup.
//
// A schema is identified by its fingerprint: the set of header names that must
// all be present in a segment's header row. Each schema lists the fields worth
// extracting and how each field's value is encoded. Schemas are declarative
// data loaded once (see [Load]) and never mutated afterwards.
package schema

import (
	"fmt"
	"strings"
)

// Encoding selects how a field is interpreted after the generic base64 layer
// has been removed.
type Encoding int

const (
	EncodingPlain      Encoding = iota // decoded text, used as-is
	EncodingJSON                       // embedded (possibly escaped) JSON document
	EncodingMultiValue                 // "&&&"-separated list of base64 parts
	EncodingURLClean                   // app/web origin normalised for display
)

// String returns the name used for the encoding in schema documents.
func (e Encoding) String() string {
	switch e {
	case EncodingPlain:
		return "plain"
	case EncodingJSON:
		return "json"
	case EncodingMultiValue:
		return "multi"
	case EncodingURLClean:
		return "url"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// ParseEncoding converts a schema document encoding name to an Encoding.
// An empty name means plain text.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain", "text":
		return EncodingPlain, nil
	case "json":
		return EncodingJSON, nil
	case "multi", "multi_value", "multivalue":
		return EncodingMultiValue, nil
	case "url", "url_clean":
		return EncodingURLClean, nil
	default:
		return 0, fmt.Errorf("%w: unknown encoding %q", ErrInvalidSchema, s)
	}
}

// Field is a single extraction directive.
type Field struct {
	Name     string   // Header name (must match the segment header exactly)
	Encoding Encoding // How the base64-decoded value is interpreted
}

// Schema describes one kind of table in the backup.
type Schema struct {
	Name        string   // Table name in the result: "logins", "notes", ...
	Fingerprint []string // Headers that must all be present for a match
	Fields      []Field  // Fields to extract, in output order
}

// MatchesHeaders reports whether every fingerprint header is in headers.
func (s *Schema) MatchesHeaders(headers map[string]struct{}) bool {
	for _, fp := range s.Fingerprint {
		if _, ok := headers[fp]; !ok {
			return false
		}
	}
	return true
}

// UnknownPrefix is the name prefix for tables synthesised from segments that
// no schema recognises.
const UnknownPrefix = "unknown_data_"

// Fallback builds the schema used for an unrecognised segment: every observed
// header becomes a plain field, in header order.
func Fallback(seq int, headers []string) *Schema {
	fields := make([]Field, 0, len(headers))
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		fields = append(fields, Field{Name: h, Encoding: EncodingPlain})
	}
	return &Schema{
		Name:   fmt.Sprintf("%s%d", UnknownPrefix, seq),
		Fields: fields,
	}
}
