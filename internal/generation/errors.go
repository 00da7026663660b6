package generation

import (
	"errors"
	"fmt"
)

// ErrInvalidMode is returned by AddLinksToExisting for modes other than the two edit passes.
var ErrInvalidMode = errors.New("invalid edit mode")

// ErrNoContent is the cause of a GenerationError when the model reply is empty after post-processing.
var ErrNoContent = errors.New("model returned no content")

// GenerationError is a failed model call for one page. The batch records it and moves on.
type GenerationError struct {
	Page    string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed for %q: %s: %v", e.Page, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failed for %q: %s", e.Page, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
