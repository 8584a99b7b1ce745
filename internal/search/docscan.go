package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"genekb/api/internal/docstore"
	"genekb/api/internal/history"
	"genekb/api/internal/model"
	"genekb/api/internal/review"
)

// DocScan is the fallback searcher: it scans stored history directly from
// the document store. Slower than the index but always consistent with it,
// and available whenever the store is.
type DocScan struct {
	docs *docstore.Store
}

func NewDocScan(docs *docstore.Store) *DocScan {
	return &DocScan{docs: docs}
}

func (d *DocScan) Healthy() bool { return true }

// Search walks every gene's trail (or one gene's when filtered) and matches
// the query text case-insensitively against location, editor, and admin.
func (d *DocScan) Search(q Query) ([]Record, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	symbols := []string{q.Gene}
	if q.Gene == "" {
		var err error
		symbols, err = d.docs.ListRecords(ctx, "History")
		if err != nil {
			return nil, 0, fmt.Errorf("list history records: %w", err)
		}
	}

	needle := strings.ToLower(q.Text)
	var matches []Record
	for _, symbol := range symbols {
		entries := make(map[string]*model.HistoryEntry)
		err := d.docs.GetInto(ctx, review.HistoryPath(symbol), &entries)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("load history for %s: %w", symbol, err)
		}
		for _, rec := range RecordsFromFlat(symbol, history.Flatten(entries)) {
			if q.Operation != "" && rec.Operation != q.Operation {
				continue
			}
			if needle != "" && !recordMatches(rec, needle) {
				continue
			}
			matches = append(matches, rec)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].TimeStamp > matches[j].TimeStamp })

	total := len(matches)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + limit
	if end > total {
		end = total
	}
	return matches[q.Offset:end], total, nil
}

func recordMatches(rec Record, needle string) bool {
	return strings.Contains(strings.ToLower(rec.Location), needle) ||
		strings.Contains(strings.ToLower(rec.Editor), needle) ||
		strings.Contains(strings.ToLower(rec.Admin), needle) ||
		strings.Contains(strings.ToLower(rec.Gene), needle)
}
