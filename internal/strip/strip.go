// SPDX-License-Identifier: MPL-2.0

// Package strip runs the ELF strip pass over the stage tree.
package strip

import (
	"context"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Tree strips unneeded symbols from every executable file and shared
// object under root. Per-file failures are swallowed: stripping is an
// optimization, never a reason to lose a finished build. When the strip
// tool is missing the whole pass is skipped with a warning.
func Tree(ctx context.Context, root string, logger *log.Logger) error {
	if _, err := exec.LookPath("strip"); err != nil {
		logger.Warn("strip not found, skipping ELF strip pass")
		return nil
	}

	haveFile := true
	if _, err := exec.LookPath("file"); err != nil {
		haveFile = false
		logger.Warn("file tool not found, stripping by permission bits only")
	}

	stripped := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Mode()&0o111 == 0 {
			return nil
		}

		if haveFile && !looksStrippable(ctx, path) {
			return nil
		}

		// Best effort per file; strip chokes on scripts and that is fine.
		if exec.CommandContext(ctx, "strip", "--strip-unneeded", path).Run() == nil {
			stripped++
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("strip pass done", "stripped", stripped)
	return nil
}

// looksStrippable probes the file type for something strip can work on.
func looksStrippable(ctx context.Context, path string) bool {
	out, err := exec.CommandContext(ctx, "file", "--brief", path).Output()
	if err != nil {
		return true // probe failed, attempt the strip anyway
	}
	desc := strings.ToLower(string(out))
	return strings.Contains(desc, "executable") || strings.Contains(desc, "shared object")
}
