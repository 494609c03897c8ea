// SPDX-License-Identifier: MPL-2.0

// Package pkgfile implements the .ppkg package archive format.
//
// A package archive is a single compressed tar whose root holds a CONTROL
// directory (meta, manifest, optional post-remove hook) next to the payload
// that gets unpacked verbatim into the target root. The compression is one
// of a closed set {none, gz, bz2, xz, zst}; readers never trust the file
// extension and detect the compression from magic bytes instead.
package pkgfile
