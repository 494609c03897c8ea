// SPDX-License-Identifier: MPL-2.0

// Package registry is the on-disk database of installed packages.
//
// The store is a directory per package under <state>/pkgs/<name>/ holding
// a copy of the archive's meta and manifest plus the optional post-remove
// hook. Meta and manifest are written to a temporary path and renamed into
// place, so a crash never leaves either half-written. An append-only installed.index
// log records one line per install.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	cp "github.com/otiai10/copy"
	"golang.org/x/exp/slices"

	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/pkgfile"

	"github.com/google/renameio"
)

// Registry is the installed-package store rooted at a state directory.
type Registry struct {
	stateDir string
}

// New returns the registry stored under stateDir.
func New(stateDir string) *Registry {
	return &Registry{stateDir: stateDir}
}

// pkgsDir is the parent of every per-package record directory.
func (r *Registry) pkgsDir() string {
	return filepath.Join(r.stateDir, "pkgs")
}

// Dir returns the record directory of one package.
func (r *Registry) Dir(name string) string {
	return filepath.Join(r.pkgsDir(), name)
}

// HookPath returns the package post-remove hook location.
func (r *Registry) HookPath(name string) string {
	return filepath.Join(r.Dir(name), "post-remove")
}

// indexPath is the append-only install log.
func (r *Registry) indexPath() string {
	return filepath.Join(r.stateDir, "installed.index")
}

// Has reports whether a package is registered.
func (r *Registry) Has(name string) bool {
	info, err := os.Stat(filepath.Join(r.Dir(name), "meta"))
	return err == nil && info.Mode().IsRegular()
}

// Record registers a package: meta and manifest are written crash-safely,
// and the optional post-remove hook (a path into the extracted archive) is
// copied in with executable permission.
func (r *Registry) Record(m pkgfile.Meta, manifest []byte, postRemoveSrc string) error {
	dir := r.Dir(m.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return issue.Wrap(err, issue.KindIO, "create registry entry")
	}

	if err := renameio.WriteFile(filepath.Join(dir, "meta"), m.Encode(), 0o644); err != nil {
		return issue.Wrap(err, issue.KindIO, "write registry meta")
	}
	if err := renameio.WriteFile(filepath.Join(dir, "manifest"), manifest, 0o644); err != nil {
		return issue.Wrap(err, issue.KindIO, "write registry manifest")
	}

	if postRemoveSrc != "" {
		hook := r.HookPath(m.Name)
		if err := cp.Copy(postRemoveSrc, hook); err != nil {
			return issue.Wrap(err, issue.KindIO, "copy post-remove hook into registry")
		}
		if err := os.Chmod(hook, 0o755); err != nil {
			return issue.Wrap(err, issue.KindIO, "mark post-remove hook executable")
		}
	}

	return nil
}

// Meta returns the stored metadata of an installed package.
func (r *Registry) Meta(name string) (pkgfile.Meta, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir(name), "meta"))
	if err != nil {
		return pkgfile.Meta{}, r.notInstalled(name, err)
	}
	m, err := pkgfile.ParseMeta(data)
	if err != nil {
		return pkgfile.Meta{}, issue.Wrap(err, issue.KindIO, "parse registry meta")
	}
	return m, nil
}

// Manifest returns the stored manifest entries of an installed package.
func (r *Registry) Manifest(name string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir(name), "manifest"))
	if err != nil {
		return nil, r.notInstalled(name, err)
	}
	return pkgfile.ParseManifest(data), nil
}

// List enumerates installed packages, sorted by name.
func (r *Registry) List() ([]pkgfile.Meta, error) {
	entries, err := os.ReadDir(r.pkgsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, issue.Wrap(err, issue.KindIO, "list registry")
	}

	var metas []pkgfile.Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := r.Meta(entry.Name())
		if err != nil {
			continue // skip torn entries rather than failing the listing
		}
		metas = append(metas, m)
	}

	slices.SortFunc(metas, func(a, b pkgfile.Meta) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return metas, nil
}

// Delete removes a package's record directory. Called last during removal,
// after the package's files are gone.
func (r *Registry) Delete(name string) error {
	if err := os.RemoveAll(r.Dir(name)); err != nil {
		return issue.Wrap(err, issue.KindIO, "delete registry entry")
	}
	return nil
}

// AppendIndex appends "<timestamp> <name>-<version>-<release>" to the
// install log. The log is advisory; callers treat failures as best-effort.
func (r *Registry) AppendIndex(m pkgfile.Meta, now time.Time) error {
	f, err := os.OpenFile(r.indexPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s %s\n", now.UTC().Format(time.RFC3339), m.Id())
	return err
}

func (r *Registry) notInstalled(name string, cause error) error {
	return issue.NewContext(issue.KindNotInstalled).
		WithOperation("look up installed package").
		WithResource(name).
		WithSuggestion("Run 'mbuild list' to see installed packages").
		Wrap(cause).
		BuildError()
}
