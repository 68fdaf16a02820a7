package gateway

import (
	"fmt"
	"time"
)

// TimeoutError means the call started but no response arrived in time. The gateway may or
// may not have processed the document.
type TimeoutError struct {
	Endpoint string
	Elapsed  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gateway timeout after %s: %v", e.Elapsed, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// TransportError is any other failure below HTTP. Dial is true when the request never left.
type TransportError struct {
	Endpoint string
	Dial     bool
	Elapsed  time.Duration
	Err      error
}

func (e *TransportError) Error() string {
	if e.Dial {
		return fmt.Sprintf("gateway unreachable: %v", e.Err)
	}
	return fmt.Sprintf("gateway transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
