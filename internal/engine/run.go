// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/fcanata061/mbuild/internal/extract"
	"github.com/fcanata061/mbuild/internal/fetch"
	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/patch"
	"github.com/fcanata061/mbuild/internal/strip"
	"github.com/fcanata061/mbuild/pkg/recipe"
)

// Run executes the full pipeline for one recipe — fetch, verify, extract,
// patch, phases, strip, package — and returns the produced archive path.
func (e *Engine) Run(ctx context.Context, recipePath string) (string, error) {
	r, err := recipe.Parse(recipePath)
	if err != nil {
		return "", err
	}

	if err := e.Layout.Ensure(); err != nil {
		return "", err
	}

	logw, err := e.openLog(r.Name, "run")
	if err != nil {
		return "", err
	}
	e.Logger.Info("run started", "recipe", r.Id(), "log", e.LogPath)

	buildDir := e.Layout.BuildDir(r.Name, r.Version)
	stage := e.Layout.Stage()
	for _, dir := range []string{buildDir, stage} {
		if err := os.RemoveAll(dir); err != nil {
			return "", issue.Wrap(err, issue.KindIO, "clear previous build tree")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", issue.Wrap(err, issue.KindIO, "create build tree")
		}
	}

	if err := e.fetchSources(ctx, r, logw); err != nil {
		return "", err
	}

	srcDir, err := e.extractSources(ctx, r, buildDir, logw)
	if err != nil {
		return "", err
	}

	patches := make([]string, 0, len(r.Patches))
	for _, p := range r.Patches {
		patches = append(patches, r.PatchPath(p))
	}
	e.banner(logw, "patch %s", r.Id())
	if err := patch.Apply(ctx, srcDir, patches, e.Logger, logw); err != nil {
		return "", err
	}

	env, err := e.phaseEnv(stage)
	if err != nil {
		return "", err
	}

	if err := e.runPhases(ctx, r, srcDir, env, logw); err != nil {
		return "", err
	}

	if e.Cfg.Strip {
		e.banner(logw, "strip %s", r.Id())
		if err := strip.Tree(ctx, stage, e.Logger); err != nil {
			e.Logger.Warn("strip pass failed", "err", err)
		}
	}

	return e.packageStage(ctx, r.Meta(e.Cfg.Prefix), hookFor(r), logw)
}

// fetchSources downloads and verifies every source of the recipe.
func (e *Engine) fetchSources(ctx context.Context, r *recipe.Recipe, logw io.Writer) error {
	opts := fetch.Options{
		Retries: e.Cfg.DownloadRetries,
		Logger:  e.Logger,
	}
	for i, src := range r.Sources {
		e.banner(logw, "fetch %s", src)
		dest := filepath.Join(e.Layout.Sources(), sourceFilename(src))
		if err := fetch.Fetch(ctx, src, dest, r.HashFor(i), opts); err != nil {
			return err
		}
	}
	return nil
}

// extractSources unpacks every source archive into the build tree and
// resolves the source directory.
func (e *Engine) extractSources(ctx context.Context, r *recipe.Recipe, buildDir string, logw io.Writer) (string, error) {
	for _, src := range r.Sources {
		archive := filepath.Join(e.Layout.Sources(), sourceFilename(src))
		e.banner(logw, "extract %s", filepath.Base(archive))
		if err := extract.Extract(ctx, archive, buildDir, logw); err != nil {
			return "", err
		}
	}

	srcDir, err := extract.SourceDir(buildDir, r.Name, r.Version)
	if err != nil {
		return "", err
	}
	e.Logger.Info("source directory", "dir", srcDir)
	return srcDir, nil
}

// runPhases executes the four phases in order, honoring the soft/hard
// contract: prepare and check failures are logged and tolerated, build and
// package failures abort.
func (e *Engine) runPhases(ctx context.Context, r *recipe.Recipe, srcDir string, env map[string]string, logw io.Writer) error {
	rc := &recipe.RunContext{Dir: srcDir, Env: env, Log: logw}

	for _, p := range recipe.Phases() {
		action := r.ActionFor(p)
		e.banner(logw, "%s %s (%s)", p, r.Id(), action.Describe())
		e.Logger.Info("phase", "name", p.String())

		err := action.Run(ctx, rc)
		if err == nil {
			continue
		}

		var status *recipe.StatusError
		if p.Soft() && errors.As(err, &status) {
			e.Logger.Warn("soft phase failed, continuing", "phase", p.String(), "exit", status.Code)
			e.banner(logw, "%s exited %d (ignored)", p, status.Code)
			continue
		}
		if p.Soft() {
			// Even a startup failure (missing tool) is tolerated for
			// soft phases.
			e.Logger.Warn("soft phase failed, continuing", "phase", p.String(), "err", err)
			continue
		}

		return issue.NewContext(issue.KindPhase).
			WithOperation("run " + p.String() + " phase").
			WithResource(r.Id()).
			WithSuggestion("See the build log: " + e.LogPath).
			Wrap(err).
			BuildError()
	}
	return nil
}

// phaseEnv assembles the environment contract exported to every phase.
func (e *Engine) phaseEnv(stage string) (map[string]string, error) {
	tc, err := e.Cfg.ResolveToolchain()
	if err != nil {
		return nil, err
	}

	env := map[string]string{
		"CFLAGS":  os.Getenv("CFLAGS"),
		"LDFLAGS": os.Getenv("LDFLAGS"),
		"JOBS":    strconv.Itoa(e.Cfg.Jobs),
		"PREFIX":  e.Cfg.Prefix,
		"STAGE":   stage,
		"DESTDIR": stage,
	}
	tc.Env(env)
	return env, nil
}

// hookFor returns the package post-remove hook shipped next to the recipe,
// or "" when there is none.
func hookFor(r *recipe.Recipe) string {
	hook := r.PostRemovePath()
	if _, err := os.Stat(hook); err != nil {
		return ""
	}
	return hook
}

// sourceFilename derives the cache filename of a source URL.
func sourceFilename(src string) string {
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return filepath.Base(src)
}
