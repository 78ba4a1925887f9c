// Package errs defines the typed error kinds shared across the render
// pipeline and aggregates them the way a multi-stage render reports failures
// without crashing the caller.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure per the propagation policy: some kinds are fatal
// to a single pixel, some to a single render, some are merely logged.
type Kind int

const (
	// KindParse marks a string -> BigFloat parse failure.
	KindParse Kind = iota
	// KindDomain marks a division-by-zero or negative-sqrt domain error.
	KindDomain
	// KindOrbitExhausted marks a reference orbit that ended before a pixel's
	// iteration did. Never propagated as an error; callers fold it into a
	// pixel's glitched flag instead. Kept here so it can still be logged.
	KindOrbitExhausted
	// KindPrecisionInsufficient marks a pre-render precision check that
	// exceeds MaxPrecisionBits.
	KindPrecisionInsufficient
	// KindWorker marks a worker failure. No code in this module raises it:
	// scheduler workers skip a tile whose compute call fails, and workers
	// are neither recreated nor logged.
	KindWorker
	// KindGpuDispatch marks a GPU dispatch failure. No code in this module
	// raises it, and the pipeline has no CPU fallback for it.
	KindGpuDispatch
	// KindMessageParse marks a malformed protocol message; it is logged and
	// the message is discarded.
	KindMessageParse
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindDomain:
		return "domain"
	case KindOrbitExhausted:
		return "orbit_exhausted"
	case KindPrecisionInsufficient:
		return "precision_insufficient"
	case KindWorker:
		return "worker"
	case KindGpuDispatch:
		return "gpu_dispatch"
	case KindMessageParse:
		return "message_parse"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a Kind so callers can branch with
// errors.As without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, errs.New(errs.KindDomain, "")) works as a kind check.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New constructs a bare Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an Error of the given kind wrapping err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// List aggregates zero or more errors into a single error value, the way a
// render surfaces every scheduling problem it hit in one pass rather than
// failing on the first.
type List []error

// NewList filters nils and returns the aggregated list.
func NewList(errs ...error) List {
	return List(nil).Add(errs...)
}

// Add appends non-nil errors and returns the extended list.
func (l List) Add(errs ...error) List {
	for _, err := range errs {
		if err == nil {
			continue
		}
		l = append(l, err)
	}
	return l
}

// ErrOrNil returns nil if the list is empty, else an error whose message
// joins every member.
func (l List) ErrOrNil() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l List) Error() string {
	parts := make([]string, len(l))
	for i, err := range l {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
