package errors

import "fmt"

// HTTPError is a non-success response from the backend, either a non-2xx
// status or an envelope whose status_code is not 200.
type HTTPError struct {
	StatusCode int
	Message    string
	Method     string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s %s: %s", e.StatusCode, e.Method, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// DecodeError indicates a response body that could not be decoded.
type DecodeError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RunError is a run or resume the backend accepted but reported as failed.
type RunError struct {
	ThreadID string
	Message  string
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed: %s", e.ThreadID, e.Message)
}
