package util

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aryankumar/atlas-report/internal/atlas"
)

// Exit codes returned by the CLI
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitPartial = 2
)

// Common error types for the atlas-report CLI
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInterrupted is the cancellation cause set by the signal handler
	ErrInterrupted = errors.New("interrupted")

	// ErrPartialReport indicates the report is missing some projects
	ErrPartialReport = errors.New("report is incomplete")
)

// ProjectError wraps an error with project context
type ProjectError struct {
	ProjectName string
	Err         error
}

// Error implements the error interface
func (e *ProjectError) Error() string {
	return fmt.Sprintf("project %q: %v", e.ProjectName, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *ProjectError) Unwrap() error {
	return e.Err
}

// WrapProjectError wraps an error with project context
func WrapProjectError(projectName string, err error) error {
	if err == nil {
		return nil
	}
	return &ProjectError{
		ProjectName: projectName,
		Err:         err,
	}
}

// ExitError carries the process exit code alongside the cause
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError wraps err with an exit code
func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an error returned by a command to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFatal
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 { // Limit to first 10 errors in the message
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// NewMultiError creates a new MultiError from a slice of errors
// It filters out nil errors
func NewMultiError(errors []error) *MultiError {
	m := &MultiError{
		Errors: make([]error, 0, len(errors)),
	}
	for _, err := range errors {
		if err != nil {
			m.Errors = append(m.Errors, err)
		}
	}
	return m
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Is makes every validation error match ErrInvalidConfig
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsCancelled reports whether err stems from an interrupt or a cancelled context
func IsCancelled(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled) ||
		atlas.KindOf(err) == atlas.KindCancelled
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *atlas.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case atlas.KindAuthFailure:
			return fmt.Sprintf("Atlas rejected the API key (HTTP %d). Check ATLAS_PUBLIC_KEY, ATLAS_PRIVATE_KEY and the key's IP access list.", apiErr.StatusCode)
		case atlas.KindRetriesExhausted:
			return fmt.Sprintf("Atlas kept failing after %d attempts (%v). Try again later or raise --max-attempts.", apiErr.Attempts, apiErr.Err)
		case atlas.KindNetworkTransient:
			return "Failed to reach Atlas. Please check network connectivity and --base-url."
		case atlas.KindNotFound:
			return "Atlas returned not found. Please check --base-url and the API key's organization."
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Run exceeded its time budget. Increase --timeout-total or narrow the project filter."
	case IsCancelled(err):
		return "Operation was cancelled."
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration:\n" + err.Error()
	default:
		// Return the original error message for unknown errors
		return err.Error()
	}
}
