package model

// HistoryOperation labels what an accepted change did to the document.
type HistoryOperation string

const (
	HistoryAdd        HistoryOperation = "add"
	HistoryDelete     HistoryOperation = "delete"
	HistoryUpdate     HistoryOperation = "update"
	HistoryNameChange HistoryOperation = "name change"
	HistoryPromote    HistoryOperation = "promote"
	HistoryDemote     HistoryOperation = "demote"
)

// HistoryEntry is one accept batch: everything an admin approved in a single
// action, stamped once and stored under a sortable push key at
// History/<symbol>/api/<key>.
type HistoryEntry struct {
	Admin     string           `json:"admin"`
	TimeStamp int64            `json:"timeStamp"`
	Records   []*HistoryRecord `json:"records"`
}

// HistoryRecord is one approved change inside a batch. UUIDs joins the field
// uuids touched by the change with commas; deletions and demotions omit it
// because the ids no longer resolve to anything. Old is omitted for
// additions and promotions for the same reason in reverse.
type HistoryRecord struct {
	LastEditBy string           `json:"lastEditBy"`
	Location   string           `json:"location"`
	Operation  HistoryOperation `json:"operation"`
	UUIDs      string           `json:"uuids,omitempty"`
	New        any              `json:"new,omitempty"`
	Old        any              `json:"old,omitempty"`
	Info       *HistoryInfo     `json:"info,omitempty"`
}

// HistoryInfo carries resolved display context for a record so readers do
// not have to re-derive it from the document.
type HistoryInfo struct {
	Mutation   string `json:"mutation,omitempty"`
	CancerType string `json:"cancerType,omitempty"`
	Treatment  string `json:"treatment,omitempty"`
	Fields     string `json:"fields,omitempty"`
}
