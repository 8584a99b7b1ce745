package review

import (
	"strings"

	"genekb/api/internal/model"
)

// Action is what a pending marker asks the reviewer to approve.
type Action string

const (
	ActionUpdate     Action = "UPDATE"
	ActionNameChange Action = "NAME_CHANGE"
	ActionCreate     Action = "CREATE"
	ActionDelete     Action = "DELETE"
	ActionPromote    Action = "PROMOTE_VUS"
	ActionDemote     Action = "DEMOTE_MUTATION"
)

// Classify maps a marker plus its field path to exactly one action. The
// order matters: promotion and demotion flags win over the generic added and
// removed flags even though both are physically array inserts or removals,
// and only after all flags are ruled out does the path decide between a
// rename and a plain update.
func Classify(m *model.Review, valuePath string) Action {
	switch {
	case m == nil:
		return ActionUpdate
	case m.DemotedToVus:
		return ActionDemote
	case m.PromotedToMutation:
		return ActionPromote
	case m.Added:
		return ActionCreate
	case m.Removed:
		return ActionDelete
	}
	switch lastSegment(valuePath) {
	case "name", "cancerTypes", "excludedCancerTypes":
		return ActionNameChange
	}
	return ActionUpdate
}

// UnderCreateOrDelete reports whether children of a node carrying this
// action are redundant for history and batch purposes: their fate is decided
// by the parent's record.
func (a Action) UnderCreateOrDelete() bool {
	switch a {
	case ActionCreate, ActionDelete, ActionPromote, ActionDemote:
		return true
	}
	return false
}

// HistoryOperation maps an action to the label stored in the audit trail.
func (a Action) HistoryOperation() model.HistoryOperation {
	switch a {
	case ActionCreate:
		return model.HistoryAdd
	case ActionDelete:
		return model.HistoryDelete
	case ActionNameChange:
		return model.HistoryNameChange
	case ActionPromote:
		return model.HistoryPromote
	case ActionDemote:
		return model.HistoryDemote
	default:
		return model.HistoryUpdate
	}
}

func lastSegment(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
