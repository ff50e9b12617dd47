package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/eupholio/costparity/internal/parityerr"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // every case passed
	ExitFailure      = 1 // at least one case failed
	ExitCommandError = 2 // configuration, fixture or reference error; bad usage
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Classified harness
// errors map through their class; anything else (usage errors included)
// is ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if class, ok := parityerr.ClassOf(err); ok {
		return class.ExitCode()
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for the auxiliary commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope for auxiliary command output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// Success outputs data. In text mode text is printed instead.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs err with its class.
func (f *OutputFormatter) Error(err error) error {
	class, _ := parityerr.ClassOf(err)
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Class: string(class), Message: err.Error()},
		})
	}
	_, werr := fmt.Fprintf(f.Writer, "error: %v\n", err)
	return werr
}
