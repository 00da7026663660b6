package structure

import "fmt"

// ConfigError represents a configuration file that could not be read, parsed, or validated.
// Configuration errors are fatal to a batch and are reported before any network call.
type ConfigError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "(inline)"
	}
	if e.Cause != nil {
		return fmt.Sprintf("config error in %s: %s: %v", loc, e.Message, e.Cause)
	}
	return fmt.Sprintf("config error in %s: %s", loc, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
