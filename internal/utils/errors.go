package utils

import (
	"fmt"
	"os"

	"github.com/jeeftor/yamlsql/internal/logging"
)

// ErrorExitCode represents different types of errors with their exit codes
type ErrorExitCode int

const (
	ExitCodeGeneral    ErrorExitCode = 1
	ExitCodeValidation ErrorExitCode = 1
	ExitCodePatterns   ErrorExitCode = 2
	ExitCodeFileSystem ErrorExitCode = 3
	ExitCodeAssembly   ErrorExitCode = 4
)

// FatalErrorWithCode handles fatal errors with specific exit codes
func FatalErrorWithCode(err error, context string, exitCode ErrorExitCode) {
	logging.UserErrorf("%s: %v", context, err)
	os.Exit(int(exitCode))
}

// ValidationError handles argument validation errors with usage information
func ValidationError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(int(ExitCodeValidation))
}

// WarnOnError logs a warning for non-fatal errors
func WarnOnError(err error, context string) {
	if err != nil {
		logging.UserWarnf("Warning: %s: %v", context, err)
	}
}

// CheckErrorWithCode exits with exitCode when err is non-nil
func CheckErrorWithCode(err error, context string, exitCode ErrorExitCode) {
	if err != nil {
		FatalErrorWithCode(err, context, exitCode)
	}
}

// MultiError represents multiple errors that occurred
type MultiError struct {
	Errors  []error
	Context string
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v (and %d more)", len(m.Errors), m.Errors[0], len(m.Errors)-1)
}

// Unwrap exposes the collected errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// NewMultiError creates a new MultiError
func NewMultiError(context string) *MultiError {
	return &MultiError{
		Context: context,
		Errors:  make([]error, 0),
	}
}

// Add adds an error to the MultiError
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ErrOrNil returns the MultiError when it holds errors, nil otherwise
func (m *MultiError) ErrOrNil() error {
	if m.HasErrors() {
		return m
	}
	return nil
}

// Join is errors.Join with a context-carrying MultiError result
func Join(context string, errs ...error) error {
	m := NewMultiError(context)
	for _, err := range errs {
		m.Add(err)
	}
	if !m.HasErrors() {
		return nil
	}
	return m
}

