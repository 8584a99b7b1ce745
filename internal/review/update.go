package review

import (
	"bytes"
	"encoding/json"

	"genekb/api/internal/model"
)

// Updated derives the marker a field should carry after an editor changes
// its value. The first edit snapshots the current value into lastReviewed
// (or sets initialUpdate when the field never had a value); later edits by
// anyone reuse the existing snapshot so the reviewer always diffs against
// the last accepted state. Editing the value back to that snapshot reverts
// the change: the pending state is dropped and reverted is true, telling the
// caller to clear the ledger bit instead of setting it.
//
// The input marker is never mutated.
func Updated(current *model.Review, editor string, currentValue, newValue any) (marker *model.Review, reverted bool) {
	var r model.Review
	if current != nil {
		r = *current
	}
	if !r.Pending() {
		if isEmptyValue(currentValue) {
			r.InitialUpdate = true
		} else {
			r.LastReviewed = currentValue
		}
	}
	r.Stamp(editor)

	if r.InitialUpdate && isEmptyValue(newValue) {
		r.InitialUpdate = false
		return &r, true
	}
	if r.HasLastReviewed() && equalValues(r.LastReviewed, newValue) {
		r.LastReviewed = nil
		return &r, true
	}
	return &r, false
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}

// equalValues compares two JSON-shaped values structurally. Both sides come
// from decoded documents, so marshaling them (with sorted map keys) gives a
// canonical form.
func equalValues(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
