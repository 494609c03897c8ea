// SPDX-License-Identifier: MPL-2.0

package pkgfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Compression identifies the compression applied to a package archive.
type Compression string

const (
	// CompNone is a plain uncompressed tar.
	CompNone Compression = "none"
	// CompGzip is gzip.
	CompGzip Compression = "gz"
	// CompBzip2 is bzip2.
	CompBzip2 Compression = "bz2"
	// CompXz is xz.
	CompXz Compression = "xz"
	// CompZstd is zstandard.
	CompZstd Compression = "zst"
)

// Compressions lists every supported compression.
func Compressions() []Compression {
	return []Compression{CompNone, CompGzip, CompBzip2, CompXz, CompZstd}
}

// ParseCompression maps a configuration value to a Compression, accepting
// the long tool names as aliases. ok is false for unknown values.
func ParseCompression(s string) (c Compression, ok bool) {
	switch s {
	case "none", "":
		return CompNone, true
	case "gz", "gzip":
		return CompGzip, true
	case "bz2", "bzip2":
		return CompBzip2, true
	case "xz":
		return CompXz, true
	case "zst", "zstd":
		return CompZstd, true
	default:
		return CompNone, false
	}
}

// tarFlag returns the tar compression flag for c, or "" for a plain tar.
// For zstd it returns tar's native --zstd flag; callers fall back to a pipe
// through the standalone tool when tar rejects it.
func (c Compression) tarFlag() string {
	switch c {
	case CompGzip:
		return "-z"
	case CompBzip2:
		return "-j"
	case CompXz:
		return "-J"
	case CompZstd:
		return "--zstd"
	default:
		return ""
	}
}

// Magic prefixes of the supported compression containers.
var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte{'B', 'Z', 'h'}
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectCompression sniffs the compression of an archive from its leading
// magic bytes. Anything unrecognized is treated as an uncompressed tar.
func DetectCompression(path string) (Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return CompNone, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 6)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return CompNone, fmt.Errorf("failed to read archive header of %s: %w", path, err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, magicXz):
		return CompXz, nil
	case bytes.HasPrefix(head, magicZstd):
		return CompZstd, nil
	case bytes.HasPrefix(head, magicBzip2):
		return CompBzip2, nil
	case bytes.HasPrefix(head, magicGzip):
		return CompGzip, nil
	default:
		return CompNone, nil
	}
}
