// Package extract turns legal documents into plain text for analysis.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNoText is returned when a document yields no text
	ErrNoText = errors.New("no text extracted")

	// ErrUnsupportedFormat is returned for file types with no extractor
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Document formats
const (
	FormatPDF  = "pdf"
	FormatText = "txt"
	FormatHTML = "html"
)

// PDF engine names
const (
	EnginePDFToText = "pdftotext"
	EngineNative    = "native"
	engineDirect    = "direct"
)

// PDFEngine extracts text from a PDF file on disk
type PDFEngine interface {
	Name() string
	ExtractPDF(ctx context.Context, path string) (string, error)
}

// Document is extracted text plus where it came from
type Document struct {
	Text   string
	Format string
	Engine string
}

// Extractor dispatches to a format-specific extractor
type Extractor struct {
	pdf PDFEngine
}

// New creates an extractor using the named PDF engine
func New(engine string) (*Extractor, error) {
	switch engine {
	case EnginePDFToText, "":
		return &Extractor{pdf: NewPDFToText()}, nil
	case EngineNative:
		return &Extractor{pdf: NewNative()}, nil
	default:
		return nil, fmt.Errorf("unknown extraction engine %q (expected %s or %s)", engine, EnginePDFToText, EngineNative)
	}
}

// NewWithEngine creates an extractor around a specific PDF engine
func NewWithEngine(engine PDFEngine) *Extractor {
	return &Extractor{pdf: engine}
}

// Engine returns the configured PDF engine name
func (e *Extractor) Engine() string {
	return e.pdf.Name()
}

// FormatOf maps a file name to a document format, or "" if unsupported
func FormatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".txt", ".md", ".text":
		return FormatText
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	}
	return ""
}

// Supported reports whether name has an extractable format
func Supported(name string) bool {
	return FormatOf(name) != ""
}

// FormatForContentType maps a MIME type to a document format, or "" if unknown
func FormatForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "application/pdf", "application/x-pdf":
		return FormatPDF
	case "text/plain", "text/markdown":
		return FormatText
	case "text/html", "application/xhtml+xml":
		return FormatHTML
	}
	return ""
}

// Extract reads the document at path
func (e *Extractor) Extract(ctx context.Context, path string) (*Document, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	switch format {
	case FormatPDF:
		return e.extractPDF(ctx, path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open document: %w", err)
		}
		defer func() { _ = f.Close() }()
		return e.extractReader(f, format)
	}
}

// ExtractBytes extracts a document held in memory, such as a download.
// PDFs are spooled to a temporary file for the PDF engine.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, format string) (*Document, error) {
	switch format {
	case FormatPDF:
		tmp, err := os.CreateTemp("", "legalyze-*.pdf")
		if err != nil {
			return nil, fmt.Errorf("create temp file: %w", err)
		}
		defer func() { _ = os.Remove(tmp.Name()) }()

		if _, err := tmp.Write(data); err != nil {
			_ = tmp.Close()
			return nil, fmt.Errorf("write temp file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("close temp file: %w", err)
		}
		return e.extractPDF(ctx, tmp.Name())

	case FormatText, FormatHTML:
		return e.extractReader(bytes.NewReader(data), format)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (*Document, error) {
	text, err := e.pdf.ExtractPDF(ctx, path)
	if err != nil {
		return nil, err
	}
	return finish(text, FormatPDF, e.pdf.Name())
}

func (e *Extractor) extractReader(r io.Reader, format string) (*Document, error) {
	switch format {
	case FormatHTML:
		text, err := HTMLText(r)
		if err != nil {
			return nil, err
		}
		return finish(text, FormatHTML, "html")

	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		if !utf8.Valid(data) {
			data = bytes.ToValidUTF8(data, []byte("�"))
		}
		return finish(string(data), FormatText, engineDirect)
	}
}

// finish normalizes line endings and rejects empty documents
func finish(text, format, engine string) (*Document, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	return &Document{Text: text, Format: format, Engine: engine}, nil
}
