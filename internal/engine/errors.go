package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Errors surfaced to the caller as real failures, as opposed to the ignored
// outcomes in Outcome.Reason which are part of normal operation.
var (
	// ErrSecretUnset means the server has no webhook secret configured; a
	// deployment error, mapped to 500.
	ErrSecretUnset = errors.New("webhook secret is not configured on the server")

	// ErrUnauthorized means the provided secret is missing or wrong.
	ErrUnauthorized = errors.New("invalid or missing webhook secret")
)

// InvalidAssetError rejects assets outside the configured allow-list.
type InvalidAssetError struct {
	Asset string
}

func (e *InvalidAssetError) Error() string {
	return fmt.Sprintf("asset %q is not in the allow-list", e.Asset)
}

// MissingFieldsError names the absent ENTRY fields so callers can fix their
// alert templates instead of guessing at a generic failure.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// PersistError wraps a failed state write. The in-memory mutation already
// happened; surfacing the failure keeps the divergence visible.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return "persist state: " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }
