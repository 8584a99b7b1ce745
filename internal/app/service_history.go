package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"genekb/api/internal/docstore"
	"genekb/api/internal/history"
	"genekb/api/internal/model"
	"genekb/api/internal/review"
)

// GeneHistory returns a gene's audit trail flattened to individual records,
// oldest first.
func (s *Service) GeneHistory(ctx context.Context, symbol string) ([]history.FlatRecord, error) {
	entries := make(map[string]*model.HistoryEntry)
	err := s.docs.GetInto(ctx, review.HistoryPath(symbol), &entries)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", symbol, err)
	}
	return history.Flatten(entries), nil
}

// GeneHistoryTSV renders the trail as tab-separated rows.
func (s *Service) GeneHistoryTSV(ctx context.Context, symbol string) (string, error) {
	records, err := s.GeneHistory(ctx, symbol)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("time\tadmin\teditor\tlocation\toperation\n")
	for _, rec := range records {
		b.WriteString(rec.Line())
		b.WriteByte('\n')
	}
	return b.String(), nil
}
