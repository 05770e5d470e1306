package driven

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by driven port implementations.
var (
	// ErrAuthFailed indicates the client-credential exchange with the
	// upstream identity endpoint failed.
	ErrAuthFailed = errors.New("upstream authentication failed")

	// ErrUpstreamFetch indicates a transport or non-2xx failure while
	// fetching messages or resources from upstream.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrResourceNotFound indicates an unknown proxy token or a missing
	// archival document.
	ErrResourceNotFound = errors.New("resource not found")
)

// StatusError carries an upstream HTTP error status so the proxy can relay
// it to the caller instead of collapsing it into a generic failure.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.Code)
}
