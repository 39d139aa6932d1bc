package preferences

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSaveFailed marks any failure to persist preferences
	ErrSaveFailed = errors.New("saving preferences failed")
	// ErrLoadFailed marks any failure to read preferences
	ErrLoadFailed = errors.New("loading preferences failed")
)

// StoreError carries the backend cause of a failed Get or Set.
// errors.Is matches both the cause and ErrSaveFailed / ErrLoadFailed.
type StoreError struct {
	Op      string // "get" or "set"
	Backend string
	UserID  string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s preferences for %q: %v", e.Backend, e.Op, e.UserID, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *StoreError) sentinel() error {
	if e.Op == "set" {
		return ErrSaveFailed
	}
	return ErrLoadFailed
}

// ProblemType maps the failure to a 502 problem
func (e *StoreError) ProblemType() (int, string, string) {
	if e.Op == "set" {
		return http.StatusBadGateway, "/errors/preferences/save-failed", "Preference Save Failed"
	}
	return http.StatusBadGateway, "/errors/preferences/load-failed", "Preference Load Failed"
}

func loadError(backend, userID string, err error) error {
	return &StoreError{Op: "get", Backend: backend, UserID: userID, Err: err}
}

func saveError(backend, userID string, err error) error {
	return &StoreError{Op: "set", Backend: backend, UserID: userID, Err: err}
}
