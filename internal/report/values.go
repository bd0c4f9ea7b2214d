package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Oracipher/Unsealer/internal/core"
)

const notAvailable = "N/A"

// text returns a record field as display text, or "" when absent.
func text(rec core.Record, key string) string {
	return formatValue(rec[key])
}

// textOr returns a record field as display text, or def when absent.
func textOr(rec core.Record, key, def string) string {
	if s := text(rec, key); s != "" {
		return s
	}
	return def
}

// object returns a nested JSON object field.
func object(rec core.Record, key string) (map[string]any, bool) {
	m, ok := rec[key].(map[string]any)
	return m, ok
}

// objectText returns a key of a nested JSON object as text, or def.
func objectText(m map[string]any, key, def string) string {
	if s := formatValue(m[key]); s != "" {
		return s
	}
	return def
}

// list returns a multi-value field.
func list(rec core.Record, key string) []string {
	switch v := rec[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, formatValue(item))
		}
		return out
	case nil:
		return nil
	default:
		return []string{formatValue(v)}
	}
}

// formatValue renders any decoded value as a single line of text.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := sortedKeys(t)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + formatValue(t[k])
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten turns a record into flat string columns. Nested objects become
// "key_subkey" columns and lists are joined with '|'.
func Flatten(rec core.Record) map[string]string {
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		switch t := v.(type) {
		case map[string]any:
			for sub, sv := range t {
				out[k+"_"+sub] = formatValue(sv)
			}
		case []string:
			out[k] = strings.Join(t, "|")
		case []any:
			parts := make([]string, len(t))
			for i, item := range t {
				parts[i] = formatValue(item)
			}
			out[k] = strings.Join(parts, "|")
		default:
			out[k] = formatValue(v)
		}
	}
	return out
}

// flattenTable flattens every record and returns the sorted union of
// their columns.
func flattenTable(t *core.Table) ([]string, []map[string]string) {
	seen := make(map[string]struct{})
	rows := make([]map[string]string, len(t.Records))
	for i, rec := range t.Records {
		rows[i] = Flatten(rec)
		for k := range rows[i] {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen), rows
}
