// SPDX-License-Identifier: MPL-2.0

// Package install unpacks package archives into the target root and
// registers them in the installed database.
//
// Installation is deliberately not atomic across files: the payload is
// streamed straight into the root with a tar pipe, and a failure mid-copy
// leaves the root partially populated with no registry entry. The build
// that produced the archive is still on disk, so re-running install is the
// recovery path.
package install

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/pkgfile"
	"github.com/fcanata061/mbuild/internal/registry"
)

// Installer installs package archives for one configuration.
type Installer struct {
	Cfg    *config.Config
	Reg    *registry.Registry
	Logger *log.Logger
	// Log receives subprocess output (the per-invocation log file).
	Log io.Writer
}

// Resolve turns the user-given package argument into an archive path:
// absolute paths are taken as-is, anything else resolves against the
// packages directory, or is taken relative to the working directory when no
// such file exists there.
func (in *Installer) Resolve(arg string) (string, error) {
	path := arg
	if !filepath.IsAbs(path) {
		candidate := filepath.Join(in.Cfg.Layout().Packages(), arg)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if _, err := os.Stat(path); err != nil {
		return "", issue.NewContext(issue.KindUsage).
			WithOperation("locate package archive").
			WithResource(arg).
			WithSuggestion("Pass an absolute path or a filename inside the packages directory").
			Wrap(err).
			BuildError()
	}
	return path, nil
}

// Install unpacks the archive at pkgPath into the target root and records
// it in the registry.
func (in *Installer) Install(ctx context.Context, pkgPath string) (pkgfile.Meta, error) {
	// Peeking the metadata up front both validates the archive and names
	// the package before anything touches the root.
	meta, err := pkgfile.ReadMeta(ctx, pkgPath)
	if err != nil {
		return pkgfile.Meta{}, err
	}
	in.Logger.Info("installing", "package", meta.Id(), "root", in.Cfg.Root)

	tmp, err := os.MkdirTemp("", "mbuild-install-*")
	if err != nil {
		return pkgfile.Meta{}, issue.Wrap(err, issue.KindIO, "create temporary directory")
	}
	defer os.RemoveAll(tmp)

	if err := pkgfile.Unpack(ctx, pkgPath, tmp, in.Log); err != nil {
		return pkgfile.Meta{}, err
	}

	ctl := filepath.Join(tmp, pkgfile.ControlDir)
	metaData, err := os.ReadFile(filepath.Join(ctl, "meta"))
	if err != nil {
		return pkgfile.Meta{}, issue.Wrap(err, issue.KindPack, "read extracted control metadata")
	}
	meta, err = pkgfile.ParseMeta(metaData)
	if err != nil {
		return pkgfile.Meta{}, issue.Wrap(err, issue.KindPack, "parse extracted control metadata")
	}

	if err := os.MkdirAll(in.Cfg.Root, 0o755); err != nil {
		return pkgfile.Meta{}, issue.Wrap(err, issue.KindIO, "create target root")
	}

	if err := in.streamPayload(ctx, tmp); err != nil {
		return pkgfile.Meta{}, err
	}

	manifest, err := os.ReadFile(filepath.Join(ctl, "manifest"))
	if err != nil {
		return pkgfile.Meta{}, issue.Wrap(err, issue.KindPack, "read extracted manifest")
	}

	hook := filepath.Join(ctl, "post-remove")
	if _, err := os.Stat(hook); err != nil {
		hook = ""
	}

	if err := in.Reg.Record(meta, manifest, hook); err != nil {
		return pkgfile.Meta{}, err
	}

	if err := in.Reg.AppendIndex(meta, time.Now()); err != nil {
		in.Logger.Warn("could not append to installed.index", "err", err)
	}

	runLdconfig(ctx, in.Logger)

	return meta, nil
}

// streamPayload copies every top-level entry except CONTROL from the
// extracted archive into the target root, preserving attributes, as a
// pack-here-unpack-there tar pipe.
func (in *Installer) streamPayload(ctx context.Context, tmp string) error {
	packCmd := exec.CommandContext(ctx, "tar",
		"-C", tmp,
		"--exclude", "./"+pkgfile.ControlDir,
		"-cf", "-", ".")
	unpackCmd := exec.CommandContext(ctx, "tar", "-C", in.Cfg.Root, "-xpf", "-")
	packCmd.Stderr = in.Log
	unpackCmd.Stdout = in.Log
	unpackCmd.Stderr = in.Log

	pipe, err := packCmd.StdoutPipe()
	if err != nil {
		return issue.Wrap(err, issue.KindIO, "create install pipe")
	}
	unpackCmd.Stdin = pipe

	if err := packCmd.Start(); err != nil {
		return issue.Wrap(err, issue.KindIO, "start payload pack")
	}
	if err := unpackCmd.Start(); err != nil {
		_ = packCmd.Wait()
		return issue.Wrap(err, issue.KindIO, "start payload unpack")
	}
	if err := packCmd.Wait(); err != nil {
		_ = unpackCmd.Wait()
		return issue.Wrap(err, issue.KindIO, "pack payload")
	}
	if err := unpackCmd.Wait(); err != nil {
		return issue.NewContext(issue.KindIO).
			WithOperation("unpack payload into target root").
			WithResource(in.Cfg.Root).
			WithSuggestion("The root may be partially populated; re-run install once the cause is fixed").
			Wrap(err).
			BuildError()
	}
	return nil
}

// runLdconfig refreshes the dynamic linker cache when the tool exists.
// Purely best-effort.
func runLdconfig(ctx context.Context, logger *log.Logger) {
	if _, err := exec.LookPath("ldconfig"); err != nil {
		return
	}
	if err := exec.CommandContext(ctx, "ldconfig").Run(); err != nil {
		logger.Debug("ldconfig failed", "err", err)
	}
}

// Ldconfig exposes the best-effort linker cache refresh to the remover.
func Ldconfig(ctx context.Context, logger *log.Logger) {
	runLdconfig(ctx, logger)
}
