// SPDX-License-Identifier: MPL-2.0

// Package recipe loads and validates recipe files and models build phases.
//
// A recipe is a CUE file validated against the embedded #Recipe schema. The
// four phases (prepare, build, check, package) are bound after load: a
// phase the recipe defines runs as a POSIX script under the embedded
// mvdan/sh interpreter; a phase it omits binds to the conventional
// autotools default. Both are variants of the same Action type, so the
// engine never cares which one it is running.
package recipe
