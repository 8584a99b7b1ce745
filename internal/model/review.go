package model

import "time"

// Review is the provisional-edit marker attached to a reviewable field while
// it awaits accept/reject. At most one of Added, Removed, PromotedToMutation,
// DemotedToVus is set at a time. LastReviewed holds the value the field had
// when it was last accepted; it is present only while the field is mid-edit
// and has not been classified as created/deleted/promoted/demoted.
type Review struct {
	UpdateTime         int64  `json:"updateTime"`
	UpdatedBy          string `json:"updatedBy"`
	LastReviewed       any    `json:"lastReviewed,omitempty"`
	Added              bool   `json:"added,omitempty"`
	Removed            bool   `json:"removed,omitempty"`
	PromotedToMutation bool   `json:"promotedToMutation,omitempty"`
	DemotedToVus       bool   `json:"demotedToVus,omitempty"`
	InitialUpdate      bool   `json:"initialUpdate,omitempty"`
}

// NewReview returns a freshly stamped marker with no flags.
func NewReview(editor string) *Review {
	return &Review{
		UpdateTime: time.Now().UnixMilli(),
		UpdatedBy:  editor,
	}
}

// Stamp refreshes the editor attribution on an existing marker.
func (r *Review) Stamp(editor string) {
	r.UpdateTime = time.Now().UnixMilli()
	r.UpdatedBy = editor
}

// HasLastReviewed distinguishes an absent prior value from a present empty
// one; an empty string is a legitimate prior value.
func (r *Review) HasLastReviewed() bool {
	return r != nil && r.LastReviewed != nil
}

// Pending reports whether the marker still carries unresolved edit state.
func (r *Review) Pending() bool {
	if r == nil {
		return false
	}
	return r.LastReviewed != nil || r.Added || r.Removed || r.PromotedToMutation || r.DemotedToVus || r.InitialUpdate
}

// ClearPending strips every pending flag and the prior value, leaving only
// the attribution stamp. Used when a created or promoted entity is accepted
// and becomes a normal, fully reviewed record.
func (r *Review) ClearPending() {
	if r == nil {
		return
	}
	r.LastReviewed = nil
	r.Added = false
	r.Removed = false
	r.PromotedToMutation = false
	r.DemotedToVus = false
	r.InitialUpdate = false
}
