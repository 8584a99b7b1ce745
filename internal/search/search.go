// Package search provides full-text search over accepted curation history.
package search

import (
	"fmt"

	"genekb/api/internal/history"
	"genekb/api/internal/model"
)

// Record is one indexed history record.
type Record struct {
	ID        string `json:"id"`
	Gene      string `json:"gene"`
	Admin     string `json:"admin"`
	Editor    string `json:"editor"`
	Location  string `json:"location"`
	Operation string `json:"operation"`
	TimeStamp int64  `json:"timeStamp"`
}

// Query describes a history search request.
type Query struct {
	Text      string
	Gene      string // empty = all genes
	Operation string // empty = all operations
	Limit     int
	Offset    int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Record `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over history records.
type Searcher interface {
	Search(q Query) ([]Record, int, error)
	Healthy() bool
}

// RecordsFromEntry converts one stored accept batch into indexable records.
// Record ids embed the gene, batch key, and position so re-indexing the same
// batch overwrites instead of duplicating.
func RecordsFromEntry(symbol, key string, entry *model.HistoryEntry) []Record {
	out := make([]Record, 0, len(entry.Records))
	for i, rec := range entry.Records {
		out = append(out, Record{
			ID:        fmt.Sprintf("%s-%s-%d", symbol, key, i),
			Gene:      symbol,
			Admin:     entry.Admin,
			Editor:    rec.LastEditBy,
			Location:  rec.Location,
			Operation: string(rec.Operation),
			TimeStamp: entry.TimeStamp,
		})
	}
	return out
}

// RecordsFromFlat converts flattened history rows, for bulk re-indexing.
func RecordsFromFlat(symbol string, rows []history.FlatRecord) []Record {
	out := make([]Record, 0, len(rows))
	seen := make(map[string]int)
	for _, row := range rows {
		i := seen[row.Key]
		seen[row.Key]++
		out = append(out, Record{
			ID:        fmt.Sprintf("%s-%s-%d", symbol, row.Key, i),
			Gene:      symbol,
			Admin:     row.Admin,
			Editor:    row.Record.LastEditBy,
			Location:  row.Record.Location,
			Operation: string(row.Record.Operation),
			TimeStamp: row.TimeStamp,
		})
	}
	return out
}
