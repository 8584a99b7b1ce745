// Package export renders a gene's curation history as downloadable
// artifacts: a printable PDF report or tab-separated rows.
package export

import "errors"

// Format represents the export output format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatTSV Format = "tsv"
)

// Request contains parameters for an export operation.
type Request struct {
	Symbol string
	Format Format
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies
	// are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrUnsupportedFormat indicates an unknown export format was
	// requested.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
