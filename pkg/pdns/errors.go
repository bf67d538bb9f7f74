package pdns

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a control-plane API failure
type Kind string

const (
	// KindNotFound means the zone or record does not exist
	KindNotFound Kind = "not_found"

	// KindConflict means the request contradicts existing state, such as
	// creating a zone with mismatched parameters
	KindConflict Kind = "conflict"

	// KindUnauthorized means the API key was rejected. Always terminal.
	KindUnauthorized Kind = "unauthorized"

	// KindUnavailable covers timeouts, connection failures, pool
	// exhaustion and 5xx responses. Retryable.
	KindUnavailable Kind = "unavailable"

	// KindInvalid means the request was malformed. Terminal.
	KindInvalid Kind = "invalid"
)

// Error is the typed failure returned by every client operation
type Error struct {
	Kind       Kind
	Op         string // Client operation, e.g. "upsert_record"
	Message    string
	StatusCode int // HTTP status when the backend answered, else 0
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdns %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("pdns %s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("pdns %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure may clear on retry
func (e *Error) Temporary() bool {
	return e.Kind == KindUnavailable
}

// KindOf extracts the failure kind from any error returned by the client.
// Unclassified errors report KindUnavailable, the conservative choice for
// transport-level failures.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnavailable
}

// IsNotFound reports whether err is a not-found failure
func IsNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindNotFound
}

// IsConflict reports whether err is a conflict failure
func IsConflict(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindConflict
}

// IsUnauthorized reports whether err is an authentication failure
func IsUnauthorized(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindUnauthorized
}

// IsUnavailable reports whether err is a transient backend failure
func IsUnavailable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindUnavailable
}

// classifyStatus maps an HTTP response status to a failure kind
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindUnavailable
	case status >= 500:
		return KindUnavailable
	case status >= 400:
		return KindInvalid
	}
	return KindInvalid
}
