package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/wiki-generator/internal/pipeline"
	"github.com/jonathan/wiki-generator/internal/project"
	"github.com/jonathan/wiki-generator/internal/structure"
	"github.com/jonathan/wiki-generator/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUpstream indicates the wiki or model provider refused or failed a call.
type ErrUpstream struct {
	Message string
	Cause   error
}

func (e *ErrUpstream) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ErrUpstream) Unwrap() error {
	return e.Cause
}

// ErrNotConfigured indicates an optional backend the request needs is not set up.
type ErrNotConfigured struct {
	What string
}

func (e *ErrNotConfigured) Error() string {
	return e.What + " is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		upstream   *ErrUpstream
		notConf    *ErrNotConfigured
		cfgErr     *structure.ConfigError
		missing    *types.MissingCredentialsError
		fields     validator.ValidationErrors
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, project.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrBatchRunning):
		return http.StatusConflict
	case errors.As(err, &validation), errors.As(err, &cfgErr), errors.As(err, &missing),
		errors.As(err, &fields), errors.Is(err, project.ErrInvalidFileName):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.As(err, &notConf):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
