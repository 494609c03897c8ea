// SPDX-License-Identifier: MPL-2.0

// Package issue defines mbuild's error taxonomy and user-facing error
// rendering.
//
// Every failure that crosses a package boundary is an *issue.Error carrying
// a Kind (the taxonomy bucket), the operation that failed, the resource
// involved, and optional suggestions. The CLI maps Kinds to exit codes and
// renders a markdown card for the kinds a user can act on directly.
package issue
