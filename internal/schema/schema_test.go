package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"", EncodingPlain, false},
		{"plain", EncodingPlain, false},
		{"JSON", EncodingJSON, false},
		{"multi", EncodingMultiValue, false},
		{"multi_value", EncodingMultiValue, false},
		{" url ", EncodingURLClean, false},
		{"base32", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEncoding(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSchema)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_Match_FirstDeclaredWins(t *testing.T) {
	reg, err := NewRegistry(
		Schema{Name: "a", Fingerprint: []string{"h1"}, Fields: []Field{{Name: "h1"}}},
		Schema{Name: "b", Fingerprint: []string{"h1", "h2"}, Fields: []Field{{Name: "h2"}}},
	)
	require.NoError(t, err)

	got, ok := reg.Match([]string{"h1", "h2", "h3"})
	require.True(t, ok)
	require.Equal(t, "a", got.Name)

	// Reversed declaration order flips the winner.
	reg, err = NewRegistry(
		Schema{Name: "b", Fingerprint: []string{"h1", "h2"}, Fields: []Field{{Name: "h2"}}},
		Schema{Name: "a", Fingerprint: []string{"h1"}, Fields: []Field{{Name: "h1"}}},
	)
	require.NoError(t, err)

	got, ok = reg.Match([]string{"h1", "h2", "h3"})
	require.True(t, ok)
	require.Equal(t, "b", got.Name)
}

func TestRegistry_Match_NoMatch(t *testing.T) {
	reg, err := NewRegistry(
		Schema{Name: "notes", Fingerprint: []string{"note_title", "note_detail"}, Fields: []Field{{Name: "note_title"}}},
	)
	require.NoError(t, err)

	_, ok := reg.Match([]string{"note_title", "other"})
	require.False(t, ok)
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		schemas []Schema
	}{
		{"no schemas", nil},
		{"empty name", []Schema{{Fingerprint: []string{"a"}, Fields: []Field{{Name: "a"}}}}},
		{"reserved prefix", []Schema{{Name: "unknown_data_1", Fingerprint: []string{"a"}, Fields: []Field{{Name: "a"}}}}},
		{"empty fingerprint", []Schema{{Name: "x", Fields: []Field{{Name: "a"}}}}},
		{"no fields", []Schema{{Name: "x", Fingerprint: []string{"a"}}}},
		{"duplicate field", []Schema{{Name: "x", Fingerprint: []string{"a"}, Fields: []Field{{Name: "a"}, {Name: "a"}}}}},
		{"bad encoding", []Schema{{Name: "x", Fingerprint: []string{"a"}, Fields: []Field{{Name: "a", Encoding: Encoding(42)}}}}},
		{"duplicate name", []Schema{
			{Name: "x", Fingerprint: []string{"a"}, Fields: []Field{{Name: "a"}}},
			{Name: "x", Fingerprint: []string{"b"}, Fields: []Field{{Name: "b"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.schemas...)
			require.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestNewRegistry_CopiesInput(t *testing.T) {
	fp := []string{"a"}
	reg, err := NewRegistry(Schema{Name: "x", Fingerprint: fp, Fields: []Field{{Name: "a"}}})
	require.NoError(t, err)

	fp[0] = "changed"
	_, ok := reg.Match([]string{"a"})
	require.True(t, ok)
}

func TestDefault(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.Equal(t, []string{"logins", "identities", "addresses", "notes"}, reg.Names())

	logins, ok := reg.Get("logins")
	require.True(t, ok)

	encodings := make(map[string]Encoding)
	for _, f := range logins.Fields {
		encodings[f.Name] = f.Encoding
	}
	require.Equal(t, EncodingURLClean, encodings["origin_url"])
	require.Equal(t, EncodingJSON, encodings["otp"])
	require.Equal(t, EncodingPlain, encodings["title"])

	identities, ok := reg.Get("identities")
	require.True(t, ok)
	require.Equal(t, EncodingMultiValue, identities.Fields[2].Encoding)
}

func TestParse_UnknownEncodingIsLoadError(t *testing.T) {
	doc := []byte(`
schemas:
  - name: x
    fingerprint: [a]
    fields:
      - { name: a, encoding: rot13 }
`)
	_, err := Parse(doc)
	require.ErrorIs(t, err, ErrInvalidSchema)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("schemas: [::"))
	require.ErrorIs(t, err, ErrInvalidSchema)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	doc := []byte(`
schemas:
  - name: cards
    fingerprint: [card_number]
    fields:
      - card_number
      - { name: extra, encoding: json }
`)
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	reg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	cards, ok := reg.Get("cards")
	require.True(t, ok)
	require.Equal(t, []Field{
		{Name: "card_number", Encoding: EncodingPlain},
		{Name: "extra", Encoding: EncodingJSON},
	}, cards.Fields)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidSchema))
}

func TestFallback(t *testing.T) {
	s := Fallback(3, []string{"h1", "h2", "h1"})
	require.Equal(t, "unknown_data_3", s.Name)
	require.Equal(t, []Field{{Name: "h1"}, {Name: "h2"}}, s.Fields)
}
