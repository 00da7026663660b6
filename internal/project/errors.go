package project

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a project directory or config.json does not exist.
var ErrNotFound = errors.New("project not found")

// ErrInvalidFileName is returned for generated file names that escape the generated directory.
var ErrInvalidFileName = errors.New("invalid page file name")

// Error represents a project store failure.
type Error struct {
	ProjectID string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("project %s: %s: %v", e.ProjectID, e.Message, e.Cause)
	}
	return fmt.Sprintf("project %s: %s", e.ProjectID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
