// Package errs defines the error kinds the dispatcher branches on to decide
// whether a work item is acked, retried, or dead-lettered.
package errs

import "fmt"

type Kind string

const (
	// InvalidGeometry: unparseable or unsupported-type polygon. Per-record
	// failure, record skipped, work item still acked.
	InvalidGeometry Kind = "invalid_geometry"
	// StoreTransient: a retryable Index Store error. Retried by internal/retry;
	// on exhaustion it is reclassified as StoreUnavailable.
	StoreTransient Kind = "store_transient"
	// StoreUnavailable: persistent Index Store failure. Work item not acked.
	StoreUnavailable Kind = "store_unavailable"
	// SinkUnavailable: NotificationSink publish failed. Work item not acked.
	SinkUnavailable Kind = "sink_unavailable"
	// ObjectStoreUnavailable: bulk payload fetch failed. Work item not acked.
	ObjectStoreUnavailable Kind = "object_store_unavailable"
	// ConfigError: fatal at worker start; the process exits non-zero.
	ConfigError Kind = "config_error"
	// PayloadMalformed: treated as StoreTransient on first attempt, then
	// dead-lettered once the source's max redelivery count is reached.
	PayloadMalformed Kind = "payload_malformed"
)

type Error struct {
	Kind    Kind
	Op      string
	Wrapped error
}

func New(kind Kind, op string, wrapped error) *Error {
	return &Error{Kind: kind, Op: op, Wrapped: wrapped}
}

func (e *Error) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Wrapped)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target carries the same Kind, so callers can write
// errors.Is(err, errs.New(errs.InvalidGeometry, "", nil)) or more simply use Of.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Of reports the Kind of err if it (or something it wraps) is an *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// as is a tiny local shim over errors.As to avoid importing errors twice in
// call sites that already alias it; kept trivial on purpose.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	kind, ok := Of(err)
	return ok && kind == k
}
