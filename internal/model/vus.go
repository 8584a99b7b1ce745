package model

import "time"

// Vus is a variant-of-unknown-significance entry. VUS lists live outside the
// review cycle: additions and removals take effect immediately.
type Vus struct {
	Name string  `json:"name"`
	Time VusTime `json:"time"`
}

// VusTime records who touched the entry and when, in epoch milliseconds.
type VusTime struct {
	By    VusEditor `json:"by"`
	Value int64     `json:"value"`
}

// VusEditor identifies the curator who created or refreshed the entry.
type VusEditor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewVus stamps a fresh entry for a single variant name.
func NewVus(name string, editorName, editorEmail string) *Vus {
	return &Vus{
		Name: name,
		Time: VusTime{
			By:    VusEditor{Name: editorName, Email: editorEmail},
			Value: time.Now().UnixMilli(),
		},
	}
}
