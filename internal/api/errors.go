package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks a missing or expired credential (401/403).
// Callers surface it by sending the user back through login; it is
// never retried.
var ErrUnauthorized = errors.New("unauthorized")

// FetchError is any other failed REST call. The room stays selected;
// the caller shows a status message and an empty or stale list.
type FetchError struct {
	Status  int
	Path    string
	Message string
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Path, e.Status)
}
