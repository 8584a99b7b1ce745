package search

import (
	"log"

	"genekb/api/internal/model"
)

// Service is the facade that tries Meilisearch first and falls back to
// scanning the document store.
type Service struct {
	meili *Meili
	scan  *DocScan
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, scan *DocScan) *Service {
	return &Service{meili: meili, scan: scan}
}

// MeiliHealthy reports whether the Meilisearch backend is configured and
// reachable.
func (s *Service) MeiliHealthy() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise scans the store.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to store scan: %v", err)
	}

	results, total, err := s.scan.Search(q)
	if err != nil {
		log.Printf("search: store scan error: %v", err)
		return Response{Results: []Record{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexHistory pushes an accepted batch into the index, fire-and-forget.
func (s *Service) IndexHistory(symbol, key string, entry *model.HistoryEntry) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records := RecordsFromEntry(symbol, key, entry)
	go func() {
		if err := s.meili.IndexRecords(records); err != nil {
			log.Printf("search: index history for %s: %v", symbol, err)
		}
	}()
}

// ReindexGene rebuilds the index entries for one symbol from stored
// history.
func (s *Service) ReindexGene(symbol string) {
	if s.meili == nil || !s.meili.Healthy() || s.scan == nil {
		return
	}
	go func() {
		results, _, err := s.scan.Search(Query{Gene: symbol, Limit: 10000})
		if err != nil {
			log.Printf("search: reindex %s: %v", symbol, err)
			return
		}
		if err := s.meili.IndexRecords(results); err != nil {
			log.Printf("search: reindex %s: %v", symbol, err)
		}
	}()
}

func nonNil(r []Record) []Record {
	if r == nil {
		return []Record{}
	}
	return r
}
