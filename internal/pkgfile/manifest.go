// SPDX-License-Identifier: MPL-2.0

package pkgfile

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fcanata061/mbuild/internal/issue"
)

// ComputeManifest walks the stage tree and returns one "./"-prefixed path
// per regular file and symlink. The walk is a depth-first pre-order
// traversal with children visited in lexical order, so the manifest is
// reproducible across platforms. A top-level CONTROL directory is not part
// of the payload and is skipped.
func ComputeManifest(stageDir string) ([]string, error) {
	var manifest []string

	err := filepath.WalkDir(stageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if rel == ControlDir {
				return filepath.SkipDir
			}
			return nil
		}
		// Regular files and symlinks only; sockets and the like never
		// survive a tar round-trip anyway.
		if d.Type()&fs.ModeSymlink == 0 && !d.Type().IsRegular() {
			return nil
		}
		manifest = append(manifest, "./"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, issue.NewContext(issue.KindIO).
			WithOperation("compute manifest").
			WithResource(stageDir).
			Wrap(err).
			BuildError()
	}

	return manifest, nil
}

// ParseManifest splits manifest file content into its entries, dropping
// blank lines.
func ParseManifest(data []byte) []string {
	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

// EncodeManifest renders manifest entries as file content, one per line.
func EncodeManifest(entries []string) []byte {
	if len(entries) == 0 {
		return []byte{}
	}
	return []byte(strings.Join(entries, "\n") + "\n")
}
