package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSchema is returned when a schema document or definition is rejected.
var ErrInvalidSchema = errors.New("invalid schema")

// Registry is an ordered, immutable list of schemas.
//
// Declaration order is part of the contract: when several fingerprints fit
// the same header row, the schema declared first wins. A Registry is safe for
// concurrent use.
type Registry struct {
	schemas []Schema
}

// NewRegistry validates the given schemas and returns a registry holding
// copies of them in the given order.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	var errs []string
	names := make(map[string]bool, len(schemas))

	copied := make([]Schema, 0, len(schemas))
	for i, s := range schemas {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		switch {
		case s.Name == "":
			errs = append(errs, fmt.Sprintf("schema %s: name is required", label))
		case strings.HasPrefix(s.Name, UnknownPrefix):
			errs = append(errs, fmt.Sprintf("schema %s: name prefix %q is reserved", label, UnknownPrefix))
		case names[s.Name]:
			errs = append(errs, fmt.Sprintf("schema %s: duplicate name", label))
		}
		names[s.Name] = true

		// An empty fingerprint matches every segment and would shadow all
		// schemas declared after it.
		if len(s.Fingerprint) == 0 {
			errs = append(errs, fmt.Sprintf("schema %s: fingerprint is empty", label))
		}
		if len(s.Fields) == 0 {
			errs = append(errs, fmt.Sprintf("schema %s: no fields", label))
		}

		fieldNames := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if f.Name == "" {
				errs = append(errs, fmt.Sprintf("schema %s: field with empty name", label))
				continue
			}
			if fieldNames[f.Name] {
				errs = append(errs, fmt.Sprintf("schema %s: duplicate field %q", label, f.Name))
			}
			fieldNames[f.Name] = true
			if f.Encoding < EncodingPlain || f.Encoding > EncodingURLClean {
				errs = append(errs, fmt.Sprintf("schema %s: field %q has invalid encoding %s", label, f.Name, f.Encoding))
			}
		}

		copied = append(copied, Schema{
			Name:        s.Name,
			Fingerprint: append([]string(nil), s.Fingerprint...),
			Fields:      append([]Field(nil), s.Fields...),
		})
	}

	if len(copied) == 0 {
		errs = append(errs, "no schemas defined")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w:\n  - %s", ErrInvalidSchema, strings.Join(errs, "\n  - "))
	}

	return &Registry{schemas: copied}, nil
}

// Match returns the first schema whose fingerprint is a subset of headers.
func (r *Registry) Match(headers []string) (*Schema, bool) {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[h] = struct{}{}
	}

	for i := range r.schemas {
		if r.schemas[i].MatchesHeaders(set) {
			return &r.schemas[i], true
		}
	}
	return nil, false
}

// Get returns a schema by name.
func (r *Registry) Get(name string) (Schema, bool) {
	for _, s := range r.schemas {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}

// Names returns the schema names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.schemas))
	for i, s := range r.schemas {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.schemas)
}
