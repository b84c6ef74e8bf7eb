package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// CommandRunner runs an external command and returns its stdout
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// lookPath is replaced in tests
var lookPath = exec.LookPath

// CheckAvailable reports whether pdftotext can be run
func CheckAvailable() error {
	if _, err := lookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// PDFToText extracts PDF text with poppler's pdftotext
type PDFToText struct {
	runner CommandRunner
}

// NewPDFToText creates an engine that shells out to pdftotext
func NewPDFToText() *PDFToText {
	return &PDFToText{runner: execRunner{}}
}

// NewPDFToTextWithRunner creates an engine with a custom command runner
func NewPDFToTextWithRunner(runner CommandRunner) *PDFToText {
	return &PDFToText{runner: runner}
}

// Name returns the engine name
func (p *PDFToText) Name() string {
	return EnginePDFToText
}

// ExtractPDF runs pdftotext and joins pages without separators
func (p *PDFToText) ExtractPDF(ctx context.Context, path string) (string, error) {
	if err := CheckAvailable(); err != nil {
		return "", err
	}

	out, err := p.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}

	return strings.ReplaceAll(string(out), "\f", ""), nil
}
