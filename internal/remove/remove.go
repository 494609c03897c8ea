// SPDX-License-Identifier: MPL-2.0

// Package remove deletes installed packages from the target root.
//
// Removal replays the stored manifest in reverse: files go first, then
// empty parent directories, then the post-remove hooks run, and the
// registry entry is deleted last so an interrupted removal can simply be
// retried.
package remove

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/install"
	"github.com/fcanata061/mbuild/internal/registry"
)

// Remover removes installed packages for one configuration.
type Remover struct {
	Cfg    *config.Config
	Reg    *registry.Registry
	Logger *log.Logger
	// Log receives hook output (the per-invocation log file).
	Log io.Writer
}

// Remove deletes the named package from the target root. It fails when the
// registry has no entry or its record cannot be deleted; individual unlink
// failures are swallowed
// so a partially damaged install can still be cleaned up.
func (rm *Remover) Remove(ctx context.Context, name string) error {
	manifest, err := rm.Reg.Manifest(name)
	if err != nil {
		return err
	}

	root := rm.Cfg.Root
	removed := 0
	for i := len(manifest) - 1; i >= 0; i-- {
		path := resolve(root, manifest[i])
		// Lstat, not Stat: a dangling symlink still needs unlinking.
		if _, err := os.Lstat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			rm.Logger.Debug("could not remove file", "path", path, "err", err)
			continue
		}
		removed++
	}
	rm.Logger.Info("files removed", "package", name, "count", removed)

	rm.pruneDirs(root, manifest)

	rm.runHook(ctx, rm.Cfg.Layout().PostRemoveHook(name), name)
	rm.runHook(ctx, rm.Reg.HookPath(name), name)

	if err := rm.Reg.Delete(name); err != nil {
		return err
	}

	install.Ldconfig(ctx, rm.Logger)
	return nil
}

// pruneDirs collects every directory prefix of the manifest entries and
// removes the ones left empty, deepest first. Non-empty directories are
// silently kept: they are shared with other packages or the base system.
func (rm *Remover) pruneDirs(root string, manifest []string) {
	seen := map[string]struct{}{}
	for _, entry := range manifest {
		dir := filepath.Dir(strings.TrimPrefix(entry, "./"))
		for dir != "." && dir != "/" && dir != "" {
			seen[dir] = struct{}{}
			dir = filepath.Dir(dir)
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))

	for _, dir := range dirs {
		// os.Remove refuses non-empty directories, which is the point.
		_ = os.Remove(filepath.Join(root, dir))
	}
}

// runHook executes a post-remove hook with the contract arguments
// (name, root) when the hook exists and is executable.
func (rm *Remover) runHook(ctx context.Context, hook, name string) {
	info, err := os.Stat(hook)
	if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
		return
	}

	rm.Logger.Info("running post-remove hook", "hook", hook)
	cmd := exec.CommandContext(ctx, hook, name, rm.Cfg.Root)
	cmd.Stdout = rm.Log
	cmd.Stderr = rm.Log
	if err := cmd.Run(); err != nil {
		rm.Logger.Warn("post-remove hook failed", "hook", hook, "err", err)
	}
}

// resolve joins a "./"-prefixed manifest entry onto the target root.
func resolve(root, entry string) string {
	return filepath.Join(root, strings.TrimPrefix(entry, "./"))
}
