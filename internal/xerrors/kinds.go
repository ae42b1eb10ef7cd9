// Package xerrors declares the engine's error-kind sentinels and the
// disposition each kind carries, per spec.md §7. Callers wrap an
// underlying error with the matching kind via Wrap so the engine loop can
// classify a tick failure without string-matching error messages, the
// same role the teacher's own error constants play around klaytn's
// chaindatafetcher package (e.g. errNoCheckpointDB, errUnsupportedFormat).
package xerrors

import "github.com/pkg/errors"

// Kind classifies a tick-level failure for logging and metrics; it never
// changes control flow beyond what the engine already does (roll back and
// back off), except where noted.
type Kind uint8

const (
	// KindProviderTransient covers retryable RPC failures (timeouts,
	// connection resets). Disposition: tick rolled back, exponential
	// backoff.
	KindProviderTransient Kind = iota
	// KindProviderProtocol covers a response the provider facade did not
	// expect (wrong variant, malformed envelope). Disposition: tick rolled
	// back, logged, backoff.
	KindProviderProtocol
	// KindParse covers a malformed felt, short-string, or calldata layout.
	// Disposition: tick rolled back; persistent repeats are a bug signal
	// rather than a transient condition.
	KindParse
	// KindStoreWrite covers a failed write (unique violation, closed
	// sink). Disposition: tick rolled back, backoff.
	KindStoreWrite
	// KindSemaphoreAcquire covers a poisoned or cancelled metadata-fetch
	// permit. Disposition: propagated, tick fails (unlike a failed metadata
	// fetch, which degrades to empty metadata, this is not locally absorbed).
	KindSemaphoreAcquire
)

// Error pairs a Kind with the underlying cause.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string { return e.cause.Error() }
func (e *Error) Unwrap() error { return e.cause }

// Wrap annotates err with kind, leaving err untouched if it is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: err}
}

// Wrapf is Wrap with a pkg/errors-style formatted message prepended.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrapf(err, format, args...)}
}

// As reports whether err (or something it wraps) is an *Error of the given
// kind.
func As(err error, kind Kind) bool {
	var xe *Error
	if !errors.As(err, &xe) {
		return false
	}
	return xe.Kind == kind
}
