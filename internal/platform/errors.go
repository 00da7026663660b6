package platform

import "fmt"

// Error is a failed adapter operation.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("platform error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("platform error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// APIError is an error reported by the wiki API itself.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("wiki API error %s: %s", e.Code, e.Info)
	}
	return "wiki API error " + e.Code
}

// StatusError is an unexpected HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
