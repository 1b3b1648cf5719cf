package arrivals

import (
	"errors"
	"fmt"
	"net/http"
)

// MalformedTimeError reports a time string that does not match the expected layout.
type MalformedTimeError struct {
	Raw    string
	Layout string
	Err    error
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time %q (layout %q): %v", e.Raw, e.Layout, e.Err)
}

func (e *MalformedTimeError) Unwrap() error { return e.Err }

// NoArrivalDataError is returned when a selection is requested on an empty sequence.
type NoArrivalDataError struct{}

func (NoArrivalDataError) Error() string { return "no arrival data" }

// ErrNoArrivalData is the NoArrivalDataError value returned by SelectNext.
var ErrNoArrivalData error = NoArrivalDataError{}

// FailureKind classifies why an upstream source could not deliver data.
type FailureKind int

const (
	FailureConnect FailureKind = iota + 1
	FailureHTTPStatus
	FailureParse
	FailureAPI
)

func (k FailureKind) String() string {
	switch k {
	case FailureConnect:
		return "connect"
	case FailureHTTPStatus:
		return "http_status"
	case FailureParse:
		return "parse"
	case FailureAPI:
		return "api"
	default:
		return "unknown"
	}
}

// DataUnavailableError is produced by the transit and weather adapters when the
// upstream request fails. The board turns it into a placeholder line.
type DataUnavailableError struct {
	Source     string
	Kind       FailureKind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *DataUnavailableError) Error() string {
	var detail string
	switch e.Kind {
	case FailureHTTPStatus:
		detail = fmt.Sprintf("http status %d", e.StatusCode)
	case FailureAPI:
		detail = fmt.Sprintf("api error %s", e.Code)
		if e.Message != "" {
			detail += ": " + e.Message
		}
	default:
		detail = e.Kind.String() + " failure"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, detail)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// Placeholder is the short text shown on the display in place of real data.
func (e *DataUnavailableError) Placeholder() string {
	switch e.Kind {
	case FailureConnect:
		return "CONNECT ERROR"
	case FailureHTTPStatus:
		return fmt.Sprintf("HTTP ERROR %d", e.StatusCode)
	case FailureParse:
		return "PARSE ERROR"
	case FailureAPI:
		return fmt.Sprintf("API ERROR %s", e.Code)
	default:
		return "ERROR"
	}
}

// Transient reports whether the failure may clear up on a later poll.
func (e *DataUnavailableError) Transient() bool {
	switch e.Kind {
	case FailureConnect:
		return true
	case FailureHTTPStatus:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsDataUnavailable reports whether err carries a DataUnavailableError.
func IsDataUnavailable(err error) (*DataUnavailableError, bool) {
	var du *DataUnavailableError
	if errors.As(err, &du) {
		return du, true
	}
	return nil, false
}
