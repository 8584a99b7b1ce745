package review

import (
	"fmt"
	"strconv"
	"strings"
)

// Store layout. Each gene symbol owns one subtree per collection; paths are
// slash-joined segments understood by the document store.
const (
	genesCollection   = "Genes"
	metaCollection    = "Meta"
	vusCollection     = "VUS"
	historyCollection = "History"
)

// GenePath addresses a location inside a gene document.
func GenePath(symbol string, parts ...string) string {
	return join(append([]string{genesCollection, symbol}, parts...)...)
}

// MetaReviewPath addresses one ledger entry for a gene.
func MetaReviewPath(symbol, id string) string {
	return join(metaCollection, symbol, "review", id)
}

// MetaPath addresses the gene's bookkeeping record.
func MetaPath(symbol string, parts ...string) string {
	return join(append([]string{metaCollection, symbol}, parts...)...)
}

// VusPath addresses the gene's variant-of-unknown-significance list.
func VusPath(symbol string, parts ...string) string {
	return join(append([]string{vusCollection, symbol}, parts...)...)
}

// HistoryPath addresses the gene's append-only audit list.
func HistoryPath(symbol string, parts ...string) string {
	return join(append([]string{historyCollection, symbol, "api"}, parts...)...)
}

func join(parts ...string) string { return strings.Join(parts, "/") }

// SymbolFromPath recovers the gene symbol from a store path such as
// "Genes/BRAF/mutations/0/name". It fails before any mutation is attempted,
// so a malformed path never causes a partial write.
func SymbolFromPath(path string) (string, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("path %q too short to contain a gene symbol", path)
	}
	return parts[1], nil
}

// ArrayElement finds the innermost array element a path addresses, returning
// the owning array's path and the element's numeric index. For
// "mutations/0/tumors/2/summary" that is ("mutations/0/tumors", 2).
func ArrayElement(path string) (arrayPath string, index int, ok bool) {
	parts := strings.Split(path, "/")
	for i := len(parts) - 1; i > 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			continue
		}
		return strings.Join(parts[:i], "/"), n, true
	}
	return "", 0, false
}

// Depth counts path segments; sibling ordering breaks ties on it.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// EntityKind orders deletions innermost first so removing a treatment is
// applied before removing the tumor that contains it, and so on up.
type EntityKind int

const (
	KindOther EntityKind = iota
	KindTreatment
	KindTumor
	KindMutation
	KindGenomicIndicator
)

// KindOfPath reports which entity array a path's innermost element lives in.
func KindOfPath(path string) EntityKind {
	parts := strings.Split(path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		switch parts[i] {
		case "treatments":
			return KindTreatment
		case "tumors":
			return KindTumor
		case "mutations":
			return KindMutation
		case "genomic_indicators":
			return KindGenomicIndicator
		}
	}
	return KindOther
}
