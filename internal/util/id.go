package util

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewUUID generates a stable field identifier. Field uuids are minted once, at
// field creation, and never change afterwards; they are the join key between
// the gene document and the pending-review ledger.
func NewUUID() string {
	return uuid.NewString()
}

// NewPushKey generates a chronologically sortable child key for append-only
// collections (history entries, VUS items).
func NewPushKey() string {
	return fmt.Sprintf("%013d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// IsUUID reports whether s looks like a canonical uuid string.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
