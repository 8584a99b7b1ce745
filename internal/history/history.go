// Package history derives the append-only audit trail from accepted review
// nodes and flattens stored trails for display and export.
package history

import (
	"sort"
	"strings"
	"time"

	"genekb/api/internal/model"
	"genekb/api/internal/review"
)

// NewEntry stamps one accept batch.
func NewEntry(admin string, records []*model.HistoryRecord) *model.HistoryEntry {
	return &model.HistoryEntry{
		Admin:     admin,
		TimeStamp: time.Now().UnixMilli(),
		Records:   records,
	}
}

// RecordsFromNodes builds one audit record per actionable node. Nodes nested
// under an in-flight create or delete are skipped: their content is already
// captured by the parent's record. Deletions and demotions omit the id list
// since nothing remains for the ids to reference; additions and promotions
// omit the prior value and instead list every id the new subtree carries.
func RecordsFromNodes(nodes []*review.Node) []*model.HistoryRecord {
	var records []*model.HistoryRecord
	for _, n := range nodes {
		if !n.Reviewable() || n.NestedUnderCreateOrDelete {
			continue
		}
		action := n.Review.Action
		rec := &model.HistoryRecord{
			LastEditBy: n.Review.Marker.UpdatedBy,
			Location:   n.HistoryLocation,
			Operation:  action.HistoryOperation(),
		}
		if n.History != nil {
			rec.Info = n.History.Info
		}
		switch action {
		case review.ActionCreate, review.ActionPromote:
			rec.UUIDs = joinIDs(n.NestedIDs())
			if n.History != nil {
				rec.New = n.History.New
			}
		case review.ActionDelete, review.ActionDemote:
			if n.History != nil {
				rec.Old = n.History.Old
			}
		default:
			rec.UUIDs = n.Review.ID.String()
			if n.History != nil {
				rec.Old = n.History.Old
				rec.New = n.History.New
			}
		}
		records = append(records, rec)
	}
	return records
}

func joinIDs(ids []review.StableID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ",")
}

// FlatRecord is one stored record joined with its batch metadata, for
// listing and export.
type FlatRecord struct {
	Key       string               `json:"key"`
	Admin     string               `json:"admin"`
	TimeStamp int64                `json:"timeStamp"`
	Record    *model.HistoryRecord `json:"record"`
}

// Flatten orders a gene's stored trail oldest first. Push keys sort
// chronologically by construction, but the batch timestamp is authoritative.
func Flatten(entries map[string]*model.HistoryEntry) []FlatRecord {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := entries[keys[i]], entries[keys[j]]
		if a.TimeStamp != b.TimeStamp {
			return a.TimeStamp < b.TimeStamp
		}
		return keys[i] < keys[j]
	})
	var out []FlatRecord
	for _, k := range keys {
		e := entries[k]
		for _, r := range e.Records {
			out = append(out, FlatRecord{Key: k, Admin: e.Admin, TimeStamp: e.TimeStamp, Record: r})
		}
	}
	return out
}

// Line renders a record as one tab-separated export row: timestamp, admin,
// editor, location, operation.
func (f FlatRecord) Line() string {
	ts := time.UnixMilli(f.TimeStamp).UTC().Format(time.RFC3339)
	return strings.Join([]string{
		ts,
		f.Admin,
		f.Record.LastEditBy,
		f.Record.Location,
		string(f.Record.Operation),
	}, "\t")
}
