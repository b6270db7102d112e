package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation was refused or failed remotely
	ExitCommandError = 2 // bad flags or missing configuration
	ExitAuth         = 3 // signed out, suspended or not an administrator
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
	// Silent marks errors the user already saw as a notice.
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode extracts the exit code from err. Unclassified errors are
// ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ValidFormats are the accepted --format values.
var ValidFormats = []string{"text", "json"}

// printer renders command results as JSON or as text.
type printer struct {
	format string
	w      io.Writer
}

type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// emit prints data as JSON, or calls text when the format is text.
func (p printer) emit(data any, text func(w io.Writer)) error {
	if p.format == "json" {
		return json.NewEncoder(p.w).Encode(response{Status: "ok", Data: data})
	}
	text(p.w)
	return nil
}

// table writes tab-aligned rows under header.
func table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

func check(b bool) string {
	if b {
		return "✓"
	}
	return "·"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
