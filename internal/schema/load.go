package schema

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// samsungDocument is the built-in schema set for Samsung Pass exports.
//
//go:embed samsung.yaml
var samsungDocument []byte

// document is the on-disk layout of a schema file.
type document struct {
	Schemas []schemaDoc `yaml:"schemas"`
}

type schemaDoc struct {
	Name        string     `yaml:"name"`
	Fingerprint []string   `yaml:"fingerprint"`
	Fields      []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Name     string `yaml:"name"`
	Encoding string `yaml:"encoding"`
}

// UnmarshalYAML accepts either a bare field name (plain encoding) or a
// mapping with name and encoding keys.
func (f *fieldDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.Name = value.Value
		return nil
	}
	type plain fieldDoc
	return value.Decode((*plain)(f))
}

// Parse decodes a YAML schema document and builds a validated registry.
// Encodings are resolved here so that an unknown encoding fails at load time.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	schemas := make([]Schema, 0, len(doc.Schemas))
	for _, sd := range doc.Schemas {
		fields := make([]Field, 0, len(sd.Fields))
		for _, fd := range sd.Fields {
			enc, err := ParseEncoding(fd.Encoding)
			if err != nil {
				return nil, fmt.Errorf("schema %s field %s: %w", sd.Name, fd.Name, err)
			}
			fields = append(fields, Field{Name: fd.Name, Encoding: enc})
		}
		schemas = append(schemas, Schema{
			Name:        sd.Name,
			Fingerprint: sd.Fingerprint,
			Fields:      fields,
		})
	}

	return NewRegistry(schemas...)
}

// Default returns the built-in Samsung Pass registry.
func Default() (*Registry, error) {
	return Parse(samsungDocument)
}

// Load reads the registry from path, or returns the built-in registry when
// path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return reg, nil
}
