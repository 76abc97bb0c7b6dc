// Package export serializes a recognized table as CSV, XLSX or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tablify/pkg/table"
)

// Format names an output encoding.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	JSON Format = "json"
)

// ParseFormat accepts csv, xlsx or json (case-insensitive); empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	case JSON:
		return JSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// FormatFromPath picks the format from the file extension, falling back to CSV.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return CSV
	}
	return f
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case JSON:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}

// WriteError reports a failure to write the output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Write encodes t to w in format f.
func Write(w io.Writer, f Format, t *table.Table) error {
	switch f {
	case XLSX:
		return WriteXLSX(w, t.Strings())
	case JSON:
		return WriteJSON(w, t)
	default:
		return WriteCSV(w, t.Strings())
	}
}

// WriteFile creates or truncates path and writes t in format f. Any failure
// is returned as *WriteError.
func WriteFile(path string, f Format, t *table.Table) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &WriteError{Path: path, Err: cerr}
		}
	}()
	if err := Write(file, f, t); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// WriteJSON writes the table including each cell's bounding box.
func WriteJSON(w io.Writer, t *table.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	rows := t.Rows
	if rows == nil {
		rows = [][]table.Cell{}
	}
	return enc.Encode(table.Table{Rows: rows})
}
