// Package export writes analysis reports to disk in the configured formats.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

// Export formats
const (
	FormatPDF      = "pdf"
	FormatText     = "txt"
	FormatJSON     = "json"
	FormatMarkdown = "md"
)

// DateLayout is the human-readable analysis timestamp
const DateLayout = "2006-01-02 15:04:05"

// Exporter renders a report in one format
type Exporter interface {
	Format() string
	Write(w io.Writer, r *model.Report) error
}

// New returns the exporter for format
func New(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case FormatPDF:
		return &PDFExporter{}, nil
	case FormatText:
		return &TextExporter{}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	case FormatMarkdown:
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// FileName returns "<document>_analysis.<format>"
func FileName(r *model.Report, format string) string {
	return fmt.Sprintf("%s_analysis.%s", r.Document.Name, format)
}

// IsOutput reports whether name looks like a file FileName produces, so
// directory scans do not analyse earlier reports
func IsOutput(name string) bool {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case FormatPDF, FormatText, FormatJSON, FormatMarkdown:
		return strings.HasSuffix(strings.TrimSuffix(base, ext), "_analysis")
	default:
		return false
	}
}

// ExportAll writes the report once per format into dir and returns the paths
// written. A failing format does not stop the others; their errors are joined.
func ExportAll(r *model.Report, formats []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	var errs []error
	for _, format := range formats {
		exp, err := New(format)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		path := filepath.Join(dir, FileName(r, exp.Format()))
		if err := writeFile(path, exp, r); err != nil {
			errs = append(errs, fmt.Errorf("export %s: %w", exp.Format(), err))
			continue
		}
		paths = append(paths, path)
	}

	return paths, errors.Join(errs...)
}

// writeFile renders into a temp file and renames it into place
func writeFile(path string, exp Exporter, r *model.Report) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := exp.Write(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// riskLine renders "N (Level Risk)"
func riskLine(r *model.Report) string {
	return fmt.Sprintf("%d (%s Risk)", r.Risk.TotalScore, score.LevelFor(r.Risk.TotalScore))
}

// matchList renders "penalty (high, 10), breach (high, 10)"
func matchList(matches []model.RiskMatch) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("%s (%s, %d)", m.Term, m.Category, m.Weight)
	}
	return strings.Join(parts, ", ")
}
