package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Oracipher/Unsealer/internal/core"
)

// WriteCSV writes one CSV file per non-empty table into dir, creating it if
// needed, and returns the paths written. Existing files are overwritten.
func WriteCSV(dir string, res *core.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	for _, t := range OrderedTables(res) {
		if len(t.Records) == 0 {
			continue
		}

		path := filepath.Join(dir, SanitizeFilename(t.Name)+".csv")
		if err := writeCSVFile(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVFile(path string, t *core.Table) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := WriteCSVTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSVTable writes a table as CSV: a header row with the sorted union of
// flattened columns, then one row per record.
func WriteCSVTable(w io.Writer, t *core.Table) error {
	headers, rows := flattenTable(t)

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}

	line := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			line[i] = row[h]
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
