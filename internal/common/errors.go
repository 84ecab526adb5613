package common

import "errors"

// Pipeline error taxonomy. Component boundaries classify raw driver errors
// into one of these so callers can branch without knowing the backend.
var (
	// ErrNotFound means the requested object is absent upstream. Not an error
	// during discovery, but is one when a specific partition was requested.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is a credential or permission fault. Fatal, never retried.
	ErrForbidden = errors.New("forbidden")

	// ErrTransient is a retryable network or server hiccup.
	ErrTransient = errors.New("transient i/o error")

	// ErrCorruptData means a partition failed to decode. Not retried within a
	// run; a later run may succeed if the upstream object is replaced.
	ErrCorruptData = errors.New("corrupt data")

	// ErrSchemaMismatch means a record could not be reconciled against the
	// canonical column table. Treated like corrupt data for the partition.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Retryable reports whether an error should be retried with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
