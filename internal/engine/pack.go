// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/pkgfile"
)

// packageStage turns the stage tree into a package archive: control data
// is written into the stage, the manifest computed, and the compressed tar
// assembled in the packages directory. The identity is recorded so a later
// `pack` can repeat this without rebuilding.
func (e *Engine) packageStage(ctx context.Context, meta pkgfile.Meta, postRemoveSrc string, logw io.Writer) (string, error) {
	stage := e.Layout.Stage()

	manifest, err := pkgfile.ComputeManifest(stage)
	if err != nil {
		return "", err
	}
	if err := pkgfile.WriteControl(stage, meta, manifest, postRemoveSrc); err != nil {
		return "", err
	}

	out := filepath.Join(e.Layout.Packages(), meta.ArchiveName())
	e.banner(logw, "package %s (%s, %s)", meta.Id(), e.Cfg.PkgComp, filepath.Base(out))
	if err := pkgfile.BuildArchive(ctx, stage, out, e.Cfg.PkgComp, logw); err != nil {
		return "", err
	}

	if err := e.writeLastBuild(meta); err != nil {
		e.Logger.Warn("could not record last build", "err", err)
	}

	e.Logger.Info("package ready", "archive", out, "files", len(manifest))
	return out, nil
}

// Pack re-packages the current stage tree without rebuilding. It needs the
// identity recorded by the last successful run.
func (e *Engine) Pack(ctx context.Context) (string, error) {
	if err := e.Layout.Ensure(); err != nil {
		return "", err
	}

	meta, err := e.readLastBuild()
	if err != nil {
		return "", err
	}

	stage := e.Layout.Stage()
	entries, err := os.ReadDir(stage)
	if err != nil || len(entries) == 0 {
		return "", issue.NewContext(issue.KindUsage).
			WithOperation("re-package stage tree").
			WithResource(stage).
			WithSuggestion("The stage tree is empty; run a build first").
			BuildError()
	}

	logw, err := e.openLog(meta.Name, "pack")
	if err != nil {
		return "", err
	}
	e.Logger.Info("pack started", "package", meta.Id(), "log", e.LogPath)

	// A hook staged by the previous run survives in CONTROL; WriteControl
	// only refreshes meta and manifest when no new hook source is given.
	return e.packageStage(ctx, meta, "", logw)
}

// writeLastBuild records the stage identity crash-safely.
func (e *Engine) writeLastBuild(meta pkgfile.Meta) error {
	return renameio.WriteFile(e.Layout.LastBuild(), meta.Encode(), 0o644)
}

// readLastBuild loads the stage identity left by the previous run.
func (e *Engine) readLastBuild() (pkgfile.Meta, error) {
	data, err := os.ReadFile(e.Layout.LastBuild())
	if err != nil {
		return pkgfile.Meta{}, issue.NewContext(issue.KindUsage).
			WithOperation("load last build record").
			WithResource(e.Layout.LastBuild()).
			WithSuggestion("pack re-packages the stage of the previous run; execute 'mbuild run <recipe>' first").
			Wrap(err).
			BuildError()
	}

	meta, err := pkgfile.ParseMeta(data)
	if err != nil {
		return pkgfile.Meta{}, issue.Wrap(err, issue.KindIO, "parse last build record")
	}
	return meta, nil
}
