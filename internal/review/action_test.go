package review

import (
	"testing"

	"genekb/api/internal/model"
)

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		marker *model.Review
		path   string
		want   Action
	}{
		{"nil marker", nil, "summary", ActionUpdate},
		{"plain update", &model.Review{LastReviewed: "old"}, "summary", ActionUpdate},
		{"name path", &model.Review{LastReviewed: "old"}, "mutations/0/name", ActionNameChange},
		{"cancer types path", &model.Review{LastReviewed: "old"}, "mutations/0/tumors/1/cancerTypes", ActionNameChange},
		{"excluded cancer types path", &model.Review{LastReviewed: "old"}, "mutations/0/tumors/1/excludedCancerTypes", ActionNameChange},
		{"added", &model.Review{Added: true}, "mutations/3/name", ActionCreate},
		{"removed", &model.Review{Removed: true}, "mutations/3/name", ActionDelete},
		{"promoted wins over added", &model.Review{Added: true, PromotedToMutation: true}, "mutations/3/name", ActionPromote},
		{"demoted wins over removed", &model.Review{Removed: true, DemotedToVus: true}, "mutations/3/name", ActionDemote},
		{"demoted wins over promoted", &model.Review{PromotedToMutation: true, DemotedToVus: true}, "mutations/3/name", ActionDemote},
		{"initial update stays update", &model.Review{InitialUpdate: true}, "background", ActionUpdate},
	}
	for _, tc := range cases {
		if got := Classify(tc.marker, tc.path); got != tc.want {
			t.Errorf("%s: Classify = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestActionHistoryOperation(t *testing.T) {
	cases := map[Action]model.HistoryOperation{
		ActionUpdate:     model.HistoryUpdate,
		ActionNameChange: model.HistoryNameChange,
		ActionCreate:     model.HistoryAdd,
		ActionDelete:     model.HistoryDelete,
		ActionPromote:    model.HistoryPromote,
		ActionDemote:     model.HistoryDemote,
	}
	for action, want := range cases {
		if got := action.HistoryOperation(); got != want {
			t.Errorf("%s.HistoryOperation() = %s, want %s", action, got, want)
		}
	}
}

func TestUnderCreateOrDelete(t *testing.T) {
	for _, a := range []Action{ActionCreate, ActionDelete, ActionPromote, ActionDemote} {
		if !a.UnderCreateOrDelete() {
			t.Errorf("%s should nest its children", a)
		}
	}
	for _, a := range []Action{ActionUpdate, ActionNameChange} {
		if a.UnderCreateOrDelete() {
			t.Errorf("%s should not nest its children", a)
		}
	}
}
