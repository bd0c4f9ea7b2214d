package core

// codecs.go holds the stateless field decoders.
//
// Every cell in a backup table is base64-wrapped regardless of its logical
// type. DecodeBase64Value removes that layer; the schema's per-field encoding
// then decides which of the other decoders applies. None of them fail: when a
// value cannot be decoded the input is passed through unchanged.

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Oracipher/Unsealer/internal/schema"
)

// NullSentinel is the base64 form of "&&&NULL&&&", the exporter's marker for
// a field with no value.
const NullSentinel = "JiYmTlVMTCYmJg=="

// MultiValueSeparator separates entries of a multi-value field.
const MultiValueSeparator = "&&&"

// domainLike matches a dot followed by at least two letters ("example.com").
var domainLike = regexp.MustCompile(`\.[a-zA-Z]{2,}`)

// DecodeBase64Value removes the generic base64 layer from a cell.
// Empty cells and NullSentinel decode to "". Values that are not valid base64
// or do not decode to UTF-8 text are returned unchanged.
func DecodeBase64Value(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == NullSentinel {
		return ""
	}

	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil || !utf8.Valid(raw) {
		return s
	}
	return string(raw)
}

// DecodeJSON parses an embedded JSON document. The exporter stores these with
// escaped quotes and sometimes an extra layer of quoting, both of which are
// removed first. Numbers are kept as json.Number. If the text still is not
// JSON, s is returned unchanged.
func DecodeJSON(s string) any {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, `\"`, `"`))
	if len(cleaned) >= 2 && strings.HasPrefix(cleaned, `"`) && strings.HasSuffix(cleaned, `"`) {
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	// Trailing content means cleaned was not a single JSON document.
	if dec.More() {
		return s
	}
	return v
}

// DecodeMultiValue splits a "&&&"-separated list whose entries look like
// "<base64>#<tag>" and returns the decoded, non-empty entries in order.
func DecodeMultiValue(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, MultiValueSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		encoded, _, _ := strings.Cut(part, "#")
		if decoded := DecodeBase64Value(encoded); decoded != "" {
			out = append(out, decoded)
		}
	}
	return out
}

// CleanURL turns an Android app origin ("android://<hash>@com.example.app")
// into the package name. Values that already look like a domain or start
// with "http" are returned unchanged, as is anything else. This is a display
// heuristic, not a URL normaliser.
func CleanURL(s string) string {
	if s == "" || domainLike.MatchString(s) || strings.HasPrefix(s, "http") {
		return s
	}
	if strings.HasPrefix(s, "android://") {
		if i := strings.LastIndex(s, "@"); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// decodeField applies a schema encoding to an already base64-decoded value.
func decodeField(enc schema.Encoding, s string) any {
	switch enc {
	case schema.EncodingJSON:
		return DecodeJSON(s)
	case schema.EncodingMultiValue:
		return DecodeMultiValue(s)
	case schema.EncodingURLClean:
		return CleanURL(s)
	default:
		return s
	}
}

// isEmptyValue reports whether a decoded value should be omitted from a record.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	default:
		return false
	}
}
