package review

import (
	"strings"

	"genekb/api/internal/util"
)

// StableID is a ledger key. Most fields carry a single id; a field whose
// review spans two physically separate sub-fields, like a tumor's included
// and excluded cancer-type lists, carries a pair joined with a comma on the
// wire. A comma-joined string that does not decode to two well-formed ids is
// kept whole as one opaque id.
type StableID struct {
	A string
	B string
}

// SingleID wraps one id.
func SingleID(a string) StableID { return StableID{A: a} }

// PairedID joins two ids into a composite key.
func PairedID(a, b string) StableID { return StableID{A: a, B: b} }

// ParseStableID decodes a wire key into a single or paired id.
func ParseStableID(s string) StableID {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return StableID{A: s}
	}
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !util.IsUUID(a) || !util.IsUUID(b) {
		return StableID{A: s}
	}
	return StableID{A: a, B: b}
}

// Paired reports whether the id is a composite pair.
func (id StableID) Paired() bool { return id.B != "" }

// String renders the wire form of the id.
func (id StableID) String() string {
	if id.Paired() {
		return id.A + "," + id.B
	}
	return id.A
}

// Parts returns every constituent key the ledger may hold for this id. A
// paired id resolves as the composite plus its two halves, so older ledgers
// that tracked the halves separately still get cleared.
func (id StableID) Parts() []string {
	if id.Paired() {
		return []string{id.String(), id.A, id.B}
	}
	return []string{id.A}
}
