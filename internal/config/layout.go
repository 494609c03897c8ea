// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"

	"github.com/fcanata061/mbuild/internal/issue"
)

// Layout derives every storage path from the single base directory.
type Layout struct {
	// Base is the root of all storage.
	Base string
}

// Sources is the shared download cache, content-addressed by filename.
func (l Layout) Sources() string { return filepath.Join(l.Base, "sources") }

// Build is the parent of per-package build trees.
func (l Layout) Build() string { return filepath.Join(l.Base, "build") }

// BuildDir is the build tree of one recipe, destroyed and recreated at the
// start of each run.
func (l Layout) BuildDir(name, version string) string {
	return filepath.Join(l.Build(), name+"-"+version)
}

// Stage is the DESTDIR-style staging tree owned by the current build.
func (l Layout) Stage() string { return filepath.Join(l.Base, "stage") }

// Packages holds produced package archives.
func (l Layout) Packages() string { return filepath.Join(l.Base, "packages") }

// Logs holds per-build log files.
func (l Layout) Logs() string { return filepath.Join(l.Base, "logs") }

// State holds the installed-package registry and bookkeeping files.
func (l Layout) State() string { return filepath.Join(l.Base, "state") }

// Recipes is the default location of recipe files.
func (l Layout) Recipes() string { return filepath.Join(l.Base, "recipes") }

// Hooks holds global hooks; post-remove hooks live in a subdirectory named
// after the event.
func (l Layout) Hooks() string { return filepath.Join(l.Base, "hooks") }

// PostRemoveHook is the global post-remove hook for one package name.
func (l Layout) PostRemoveHook(name string) string {
	return filepath.Join(l.Hooks(), "post-remove", name)
}

// LastBuild records the identity of the stage tree contents, so `pack` can
// re-package without re-running the pipeline.
func (l Layout) LastBuild() string { return filepath.Join(l.State(), "last-build") }

// all returns every directory the layout owns.
func (l Layout) all() []string {
	return []string{
		l.Sources(),
		l.Build(),
		l.Stage(),
		l.Packages(),
		l.Logs(),
		l.State(),
		l.Recipes(),
		filepath.Join(l.Hooks(), "post-remove"),
	}
}

// Ensure creates every layout directory. It is idempotent.
func (l Layout) Ensure() error {
	for _, dir := range l.all() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return issue.NewContext(issue.KindIO).
				WithOperation("create base directory layout").
				WithResource(dir).
				Wrap(err).
				BuildError()
		}
	}
	return nil
}
