package app

import "fmt"

// DomainError is a curation-flow failure the caller can act on: a missing
// gene, a stale review selection, a duplicate mutation. Status and Code map
// straight onto the HTTP error envelope; anything without a DomainError
// wrapping is an internal fault.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
