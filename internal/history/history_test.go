package history

import (
	"strings"
	"testing"

	"genekb/api/internal/model"
	"genekb/api/internal/review"
)

func reviewableNode(location string, action review.Action, editor, id string) *review.Node {
	return &review.Node{
		Kind:            review.KindReviewable,
		Title:           location,
		HistoryLocation: location,
		Review: &review.ReviewInfo{
			Marker: &model.Review{UpdatedBy: editor},
			ID:     review.ParseStableID(id),
			WireID: id,
			Action: action,
		},
	}
}

func TestRecordsFromNodesSkipsNonActionable(t *testing.T) {
	meta := &review.Node{Kind: review.KindMeta, Title: "V600E"}
	nested := reviewableNode("V600E, Mutation Effect", review.ActionUpdate, "alice", "u-1")
	nested.NestedUnderCreateOrDelete = true

	records := RecordsFromNodes([]*review.Node{meta, nested})
	if len(records) != 0 {
		t.Fatalf("records = %+v", records)
	}
}

func TestRecordsFromNodesUpdate(t *testing.T) {
	n := reviewableNode("Gene Summary", review.ActionUpdate, "alice", "u-1")
	n.History = &review.HistoryData{Old: "before", New: "after"}

	records := RecordsFromNodes([]*review.Node{n})
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	rec := records[0]
	if rec.Operation != model.HistoryUpdate || rec.LastEditBy != "alice" || rec.Location != "Gene Summary" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Old != "before" || rec.New != "after" || rec.UUIDs != "u-1" {
		t.Fatalf("record payload = %+v", rec)
	}
}

func TestRecordsFromNodesCreateListsNestedIDs(t *testing.T) {
	n := reviewableNode("K601E", review.ActionCreate, "bob", "u-name")
	n.History = &review.HistoryData{New: map[string]any{"name": "K601E"}}
	child := reviewableNode("K601E, Mutation Effect", review.ActionUpdate, "bob", "u-effect")
	child.NestedUnderCreateOrDelete = true
	n.Children = []*review.Node{child}

	records := RecordsFromNodes([]*review.Node{n})
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	rec := records[0]
	if rec.Operation != model.HistoryAdd {
		t.Fatalf("operation = %v", rec.Operation)
	}
	if rec.UUIDs != "u-name,u-effect" {
		t.Fatalf("uuids = %q", rec.UUIDs)
	}
	if rec.New == nil || rec.Old != nil {
		t.Fatalf("payload = %+v", rec)
	}
}

func TestRecordsFromNodesDeleteOmitsIDs(t *testing.T) {
	n := reviewableNode("G469A", review.ActionDelete, "carol", "u-name")
	n.History = &review.HistoryData{Old: map[string]any{"name": "G469A"}}

	records := RecordsFromNodes([]*review.Node{n})
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	rec := records[0]
	if rec.Operation != model.HistoryDelete || rec.UUIDs != "" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Old == nil || rec.New != nil {
		t.Fatalf("payload = %+v", rec)
	}
}

func TestFlattenOrdersByTimestamp(t *testing.T) {
	entries := map[string]*model.HistoryEntry{
		"key-b": {
			Admin:     "root",
			TimeStamp: 2000,
			Records: []*model.HistoryRecord{
				{Location: "Gene Summary", Operation: model.HistoryUpdate},
			},
		},
		"key-a": {
			Admin:     "root",
			TimeStamp: 1000,
			Records: []*model.HistoryRecord{
				{Location: "V600E", Operation: model.HistoryAdd},
				{Location: "Gene Background", Operation: model.HistoryUpdate},
			},
		},
	}

	flat := Flatten(entries)
	if len(flat) != 3 {
		t.Fatalf("flattened %d records", len(flat))
	}
	wantLocations := []string{"V600E", "Gene Background", "Gene Summary"}
	for i, want := range wantLocations {
		if flat[i].Record.Location != want {
			t.Errorf("flat[%d].Location = %q, want %q", i, flat[i].Record.Location, want)
		}
	}
	if flat[0].Key != "key-a" || flat[2].Key != "key-b" {
		t.Errorf("keys = %q, %q", flat[0].Key, flat[2].Key)
	}
}

func TestFlatRecordLine(t *testing.T) {
	f := FlatRecord{
		Admin:     "root",
		TimeStamp: 1700000000000,
		Record: &model.HistoryRecord{
			LastEditBy: "alice",
			Location:   "Gene Summary",
			Operation:  model.HistoryUpdate,
		},
	}
	fields := strings.Split(f.Line(), "\t")
	if len(fields) != 5 {
		t.Fatalf("line has %d fields: %q", len(fields), f.Line())
	}
	if fields[0] != "2023-11-14T22:13:20Z" {
		t.Errorf("timestamp = %q", fields[0])
	}
	if fields[1] != "root" || fields[2] != "alice" || fields[3] != "Gene Summary" || fields[4] != "update" {
		t.Errorf("fields = %v", fields)
	}
}
