package main

import (
	"errors"
	"fmt"
	"io"
)

// UsageError is invalid command-line input. It exits 1 after printing the
// command's usage.
type UsageError struct {
	Err   error
	Usage string
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ExitError carries a status to exit with, usually the framework's own.
// Err, when set, is reported before exiting.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitCode reports err on stderr and maps it to a process exit status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "Error: %v\n\n%s", usageErr.Err, usageErr.Usage)
		return 1
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(stderr, "Error:", exitErr.Err)
		}
		if exitErr.Code == 0 {
			return 1
		}
		return exitErr.Code
	}

	fmt.Fprintln(stderr, "Error:", err)
	return 1
}
