// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/fcanata061/mbuild/internal/extract"
	"github.com/fcanata061/mbuild/internal/issue"
)

// Exit codes of the command surface.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitFetch    = 3
	exitNoSrcDir = 4
)

// ExitError signals a specific exit code without forcing os.Exit inside
// RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps an error to the documented exit codes: 2 for bad usage
// and missing artifacts, 3 for fetch failures, 4 for a missing source
// directory after extraction, 1 for everything else.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, extract.ErrSourceDirNotFound) {
		return exitNoSrcDir
	}

	switch issue.KindOf(err) {
	case issue.KindUsage, issue.KindNotInstalled:
		return exitUsage
	case issue.KindFetch, issue.KindIntegrity:
		// Integrity checks run inside the fetcher; both are download
		// failures from the user's point of view.
		return exitFetch
	default:
		return exitFailure
	}
}
