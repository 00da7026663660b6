package pipeline

import "errors"

var (
	// ErrUnknownPage is recorded for selected titles missing from the structure.
	ErrUnknownPage = errors.New("page not in structure")
	// ErrNoExistingContent is recorded when an edit pass has nothing to edit.
	ErrNoExistingContent = errors.New("no existing content for edit pass")
	// ErrNoStructure is returned when a project has no pages.yaml.
	ErrNoStructure = errors.New("project has no structure configured")
	// ErrLoginFailed is returned or recorded when the wiki rejects the credentials.
	ErrLoginFailed = errors.New("failed to login to wiki")
	// ErrBatchRunning is returned when a batch of the same kind is already running for a project.
	ErrBatchRunning = errors.New("a batch is already running for this project")
)
