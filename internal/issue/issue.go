// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// Kind buckets every failure the engine can surface.
type Kind int

const (
	// KindUsage covers bad command-line usage and missing artifacts.
	KindUsage Kind = iota + 1
	// KindRecipe covers recipe files that fail to parse or validate.
	KindRecipe
	// KindFetch covers download failures after all retries.
	KindFetch
	// KindIntegrity covers content-hash mismatches on fetched sources.
	KindIntegrity
	// KindExtract covers archive unpacking failures and a missing source
	// directory after extraction.
	KindExtract
	// KindPatch covers patch application failures.
	KindPatch
	// KindPhase covers a hard phase exiting non-zero.
	KindPhase
	// KindNotInstalled covers removal of a package the registry doesn't know.
	KindNotInstalled
	// KindPack covers package archive assembly failures.
	KindPack
	// KindIO covers filesystem failures not owned by a more specific kind.
	KindIO
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "UsageError"
	case KindRecipe:
		return "RecipeError"
	case KindFetch:
		return "FetchError"
	case KindIntegrity:
		return "IntegrityError"
	case KindExtract:
		return "ExtractError"
	case KindPatch:
		return "PatchError"
	case KindPhase:
		return "PhaseError"
	case KindNotInstalled:
		return "NotInstalledError"
	case KindPack:
		return "PackError"
	case KindIO:
		return "IoError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type (
	// Error is a failure with context for user-facing error messages.
	// It records what operation failed, what resource was involved, and
	// suggestions for how to fix the issue.
	//
	// Use the Context builder for convenient construction:
	//
	//	err := issue.NewContext(issue.KindRecipe).
	//		WithOperation("load recipe").
	//		WithResource("./hello.cue").
	//		WithSuggestion("Check the recipe defines name, version and sources").
	//		Wrap(originalErr).
	//		BuildError()
	Error struct {
		// Kind is the taxonomy bucket this error belongs to.
		Kind Kind

		// Operation describes what was being attempted (e.g., "fetch source").
		Operation string

		// Resource identifies the file, URL, or package involved (optional).
		Resource string

		// Suggestions provides hints on how to fix the issue (optional).
		Suggestions []string

		// Cause is the underlying error that triggered this error (optional).
		Cause error
	}

	// Context is a builder for constructing Error instances incrementally.
	Context struct {
		kind        Kind
		operation   string
		resource    string
		suggestions []string
		cause       error
	}
)

// NewContext creates a new Context builder for the given kind.
func NewContext(kind Kind) *Context {
	return &Context{kind: kind}
}

// Wrap wraps an error with a kind and operation context.
// This is a shorthand for common wrapping patterns.
func Wrap(err error, kind Kind, operation string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Operation: operation, Cause: err}
}

// --- Error methods ---

// Error implements the error interface.
// Returns a concise message suitable for default (non-verbose) output.
func (e *Error) Error() string {
	var msg strings.Builder

	msg.WriteString(e.Kind.String())
	msg.WriteString(": failed to ")
	msg.WriteString(e.Operation)

	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}

	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}

	return msg.String()
}

// Unwrap returns the underlying cause for use with errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Format returns a formatted message with optional verbosity.
// When verbose, the full error chain is appended.
func (e *Error) Format(verbose bool) string {
	var msg strings.Builder

	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, suggestion := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(suggestion)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		err := e.Cause
		depth := 1
		for err != nil {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			err = errors.Unwrap(err)
			depth++
		}
	}

	return msg.String()
}

// --- Context methods ---

// WithOperation sets the operation being performed.
// The operation should be a verb phrase like "fetch source" or "apply patch".
func (c *Context) WithOperation(op string) *Context {
	c.operation = op
	return c
}

// WithResource sets the resource (file, URL, package) involved.
func (c *Context) WithResource(res string) *Context {
	c.resource = res
	return c
}

// WithSuggestion adds a suggestion for how to fix the issue.
// Can be called multiple times to add multiple suggestions.
func (c *Context) WithSuggestion(sug string) *Context {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// Wrap wraps an underlying error as the cause.
func (c *Context) Wrap(err error) *Context {
	c.cause = err
	return c
}

// Build creates an Error from the context.
// Returns nil if no operation is set (operation is required).
func (c *Context) Build() *Error {
	if c.operation == "" {
		return nil
	}

	return &Error{
		Kind:        c.kind,
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}

// BuildError creates an Error and returns it as an error interface,
// for direct use in return statements.
func (c *Context) BuildError() error {
	e := c.Build()
	if e == nil {
		return nil
	}
	return e
}

// --- Inspection helpers ---

// KindOf returns the Kind of err, or 0 when err carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
