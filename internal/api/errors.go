package api

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a data-plane failure. Every error leaving this package is
// an *Error carrying one of these kinds; nothing rawer crosses into the
// engine.
type Kind int

const (
	// KindTransient covers network errors, 5xx responses, and malformed
	// bodies. Worth retrying with backoff.
	KindTransient Kind = iota
	// KindTerminal covers request-shape failures (4xx other than auth).
	// Retrying the same request cannot help.
	KindTerminal
	// KindCancelled means the request was superseded or the caller went
	// away. Never user-visible.
	KindCancelled
	// KindDenied means the tenant/dashboard may not be viewed. Permanent
	// and distinct from network failure.
	KindDenied
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindTerminal:
		return "terminal"
	case KindCancelled:
		return "cancelled"
	case KindDenied:
		return "denied"
	}
	return "unknown"
}

// Error is the typed failure returned by the api client.
type Error struct {
	Kind   Kind
	Status int // HTTP status when the server answered, else 0
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err. Plain context cancellation maps
// to KindCancelled; anything unclassified is treated as transient so the
// retry path stays the safe default.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindTransient
}

func wrap(op string, kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Status: status, Op: op, Err: err}
}

// classifyStatus maps an HTTP status to a failure kind.
func classifyStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindDenied
	case status >= 400 && status < 500:
		return KindTerminal
	default:
		return KindTransient
	}
}
