package export

import (
	"context"
	"strings"

	"genekb/api/internal/history"
)

// HistorySource supplies the ordered curation trail for a gene.
type HistorySource interface {
	GeneHistory(ctx context.Context, symbol string) ([]history.FlatRecord, error)
}

// Service renders gene history exports.
type Service struct {
	source HistorySource
}

func New(source HistorySource) *Service {
	return &Service{source: source}
}

// Export generates the requested artifact for a gene's history.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	records, err := s.source.GeneHistory(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	switch req.Format {
	case FormatPDF:
		html, err := renderHistoryHTML(req.Symbol, records)
		if err != nil {
			return nil, err
		}
		return renderPDF(html, req.Symbol+" history")
	case FormatTSV:
		return renderTSV(req.Symbol, records), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

func renderTSV(symbol string, records []history.FlatRecord) *Result {
	var b strings.Builder
	b.WriteString("time\tadmin\teditor\tlocation\toperation\n")
	for _, r := range records {
		b.WriteString(r.Line())
		b.WriteByte('\n')
	}
	return &Result{
		Data:     []byte(b.String()),
		Filename: sanitizeFilename(symbol+" history") + ".tsv",
		MimeType: "text/tab-separated-values",
	}
}
