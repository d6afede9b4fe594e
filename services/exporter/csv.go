package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/internal/crawler"
	"sjsage522/keypriceworker/pkg/errors"
)

// TopFileName names the ranked table export of a capture date
func TopFileName(capturedOn time.Time) string {
	return fmt.Sprintf("goclecd_top50_%s.csv", helpers.FileDateStamp(capturedOn))
}

// GameFileName names the offers table export of one game
func GameFileName(gameName string, capturedOn time.Time) string {
	return fmt.Sprintf("goclecd_%s_%s.csv", helpers.Slugify(gameName), helpers.FileDateStamp(capturedOn))
}

// CSVExporter writes finalized tables as CSV files under Dir
type CSVExporter struct {
	Dir string
}

// NewCSVExporter creates an exporter writing under dir
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{Dir: dir}
}

// Export writes the header row and every row of t to fileName, truncating
// any previous file, and returns the written path. Empty tables still get
// a header.
func (e *CSVExporter) Export(fileName string, t *crawler.Table) (string, error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", errors.NewExport(t.Name, "create output dir", err)
	}

	path := filepath.Join(e.Dir, fileName)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.NewExport(t.Name, fmt.Sprintf("create file %q", path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return "", errors.NewExport(t.Name, "write header", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return "", errors.NewExport(t.Name, "write rows", err)
	}

	if err := f.Close(); err != nil {
		return "", errors.NewExport(t.Name, "close file", err)
	}
	return path, nil
}
