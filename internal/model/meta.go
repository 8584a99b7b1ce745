package model

// Meta is the per-symbol bookkeeping record. Review is the pending-edit
// ledger: uuid keys mapped to true while an edit awaits review, plus the
// reserved currentReviewer entry. Resolved entries are deleted rather than
// set to false, so iterating the map yields only open work.
type Meta struct {
	LastModifiedBy string         `json:"lastModifiedBy,omitempty"`
	LastModifiedAt string         `json:"lastModifiedAt,omitempty"`
	Review         map[string]any `json:"review,omitempty"`
}

// MetaReviewerKey is the ledger entry naming who currently holds the review
// session; every other key in the ledger is a field uuid.
const MetaReviewerKey = "currentReviewer"

// PendingUUIDs returns the open ledger entries, excluding the reviewer slot.
func (m *Meta) PendingUUIDs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Review))
	for k, v := range m.Review {
		if k == MetaReviewerKey {
			continue
		}
		if b, ok := v.(bool); ok && b {
			out = append(out, k)
		}
	}
	return out
}
