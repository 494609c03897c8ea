// SPDX-License-Identifier: MPL-2.0

// Package patch applies recipe patches to an unpacked source tree.
package patch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/issue"
)

// Apply applies the given patch files in order against srcDir with strip
// level 1. A listed patch that does not exist on disk is skipped silently;
// shipping a recipe ahead of its patches is the author's choice. A patch
// that fails to apply aborts with a PatchError.
func Apply(ctx context.Context, srcDir string, patches []string, logger *log.Logger, logw io.Writer) error {
	for _, p := range patches {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			logger.Debug("patch not present, skipping", "patch", filepath.Base(p))
			continue
		}

		logger.Info("applying patch", "patch", filepath.Base(p))
		if err := apply(ctx, srcDir, p, logw); err != nil {
			return issue.NewContext(issue.KindPatch).
				WithOperation("apply patch").
				WithResource(p).
				WithSuggestion("Check the patch was generated with -p1 paths").
				Wrap(err).
				BuildError()
		}
	}
	return nil
}

func apply(ctx context.Context, srcDir, patchFile string, logw io.Writer) error {
	f, err := os.Open(patchFile)
	if err != nil {
		return err
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, "patch", "-Np1")
	cmd.Dir = srcDir
	cmd.Stdin = f
	cmd.Stdout = logw
	cmd.Stderr = logw

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("patch -Np1: %w", err)
	}
	return nil
}
