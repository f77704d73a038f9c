package milestone

import "errors"

var (
	// ErrNotFound is returned when a milestone id is unknown to the store.
	ErrNotFound = errors.New("milestone: not found")
	// ErrForbidden is returned when a caller tries to change a milestone it
	// does not own, such as deleting one derived from a task.
	ErrForbidden = errors.New("milestone: forbidden")
	// ErrValidation is returned for incomplete or inconsistent input.
	ErrValidation = errors.New("milestone: invalid")
	// ErrBackendUnavailable wraps network and storage failures so callers see
	// the same error regardless of which backend is configured.
	ErrBackendUnavailable = errors.New("milestone: backend unavailable")
)
