package signalapi

import (
	"errors"
	"fmt"
)

// Reason classifies why a fetch failed.
type Reason string

const (
	// ReasonNetwork means the request never produced a complete response.
	ReasonNetwork Reason = "network"
	// ReasonHTTPStatus means the backend answered with a non-2xx status.
	ReasonHTTPStatus Reason = "http_status"
	// ReasonParse means the body was not a JSON object.
	ReasonParse Reason = "parse"
)

// FetchError is returned by every Client call that talks to the backend.
type FetchError struct {
	Op     string // e.g. "GET /api/state"
	Reason Reason
	Status int // HTTP status, set for ReasonHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Reason == ReasonHTTPStatus:
		return fmt.Sprintf("%s: http status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsReason reports whether err wraps a *FetchError with the given reason.
func IsReason(err error, r Reason) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Reason == r
}

// ReasonOf returns the fetch reason carried by err, or "" when err is not a
// *FetchError.
func ReasonOf(err error) Reason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}
