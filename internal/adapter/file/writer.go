// Package file writes datasets to local CSV and JSON files. CSV rows end in
// CRLF. JSON is written on one line without a trailing newline, using ", "
// and ": " as separators and leaving non-ASCII text unescaped.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

// Writer persists datasets as <dir>/<kind>.csv and <dir>/<kind>.json.
// It implements pipeline.Loader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir. The directory must exist.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "file" }

// CSVPath is where the CSV rendition of kind is written.
func (w *Writer) CSVPath(kind domain.Kind) string {
	return filepath.Join(w.dir, string(kind)+".csv")
}

// JSONPath is where the JSON rendition of kind is written.
func (w *Writer) JSONPath(kind domain.Kind) string {
	return filepath.Join(w.dir, string(kind)+".json")
}

// Load removes any previous output for the dataset's kind, then writes the
// CSV (when the kind has a header) and JSON files. Writes are not atomic.
func (w *Writer) Load(_ context.Context, ds domain.Dataset) error {
	csvPath, jsonPath := w.CSVPath(ds.Kind), w.JSONPath(ds.Kind)

	if err := removeIfExists(csvPath); err != nil {
		return err
	}
	if err := removeIfExists(jsonPath); err != nil {
		return err
	}

	w.logger.Info("saving", "kind", ds.Kind, "records", len(ds.Records))

	if len(ds.Header) > 0 {
		if err := writeCSV(csvPath, ds); err != nil {
			return err
		}
	}
	return writeJSON(jsonPath, ds.JSONPayload())
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, ds domain.Dataset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	cw.UseCRLF = true
	if err := cw.Write(ds.Header); err != nil {
		return fmt.Errorf("write %s header: %w", path, err)
	}
	for _, r := range ds.Records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("write %s row %s: %w", path, r.Key(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data := spaceSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// spaceSeparators adds a space after every ',' and ':' of compact JSON that
// sits outside a string literal.
func spaceSeparators(compact []byte) []byte {
	out := make([]byte, 0, len(compact)+len(compact)/8)
	inString, escaped := false, false
	for _, b := range compact {
		out = append(out, b)
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case !inString && (b == ',' || b == ':'):
			out = append(out, ' ')
		}
	}
	return out
}
