// Package ingest runs search queries against the places provider and stores
// the returned records.
package ingest

import "errors"

var (
	// ErrInvalidRequest is matched by every request validation failure.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingPlaceID rejects a provider record without a place_id.
	ErrMissingPlaceID = errors.New("ingest: record has no place_id")
)

// ValidationError is a request validation failure. Msg is safe to return to
// the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is makes errors.Is(err, ErrInvalidRequest) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
