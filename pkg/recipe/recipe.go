// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"fmt"
	"path/filepath"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/pkgfile"
)

// Recipe is a loaded, validated recipe.
type Recipe struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Release int      `json:"release,omitempty"`
	Arch    string   `json:"arch,omitempty"`
	Sources []string `json:"sources"`
	Patches []string `json:"patches,omitempty"`
	Hashes  []string `json:"hashes,omitempty"`

	// Phases holds the recipe's phase scripts; an empty entry means "use
	// the default action".
	Phases PhaseScripts `json:"phases,omitempty"`

	// FilePath is where the recipe was loaded from. Relative patch paths
	// resolve against its directory.
	FilePath string `json:"-"`
}

// Meta derives the control metadata this recipe produces under the given
// installation prefix.
func (r *Recipe) Meta(prefix string) pkgfile.Meta {
	return pkgfile.Meta{
		Name:    r.Name,
		Version: r.Version,
		Release: r.Release,
		Arch:    r.Arch,
		Prefix:  prefix,
	}
}

// Id returns the canonical identifier name-version-release.
func (r *Recipe) Id() string {
	return fmt.Sprintf("%s-%s-%d", r.Name, r.Version, r.Release)
}

// Dir returns the directory containing the recipe file.
func (r *Recipe) Dir() string {
	return filepath.Dir(r.FilePath)
}

// PatchPath resolves a patch entry against the recipe directory.
func (r *Recipe) PatchPath(patch string) string {
	if filepath.IsAbs(patch) {
		return patch
	}
	return filepath.Join(r.Dir(), patch)
}

// PostRemovePath returns the path where the package post-remove hook is
// looked up next to the recipe file (<name>.post-remove); the path is
// returned whether or not the file exists. The file, when present, is
// bundled into CONTROL/post-remove.
func (r *Recipe) PostRemovePath() string {
	return filepath.Join(r.Dir(), r.Name+".post-remove")
}

// HashFor returns the expected digest of the i-th source, or "" when the
// recipe ships no hashes.
func (r *Recipe) HashFor(i int) string {
	if len(r.Hashes) == 0 || i >= len(r.Hashes) {
		return ""
	}
	return r.Hashes[i]
}

// validate applies defaults and enforces the invariants the schema cannot
// express.
func (r *Recipe) validate() error {
	if r.Name == "" {
		return recipeError(r.FilePath, "recipe is missing required field \"name\"")
	}
	if r.Version == "" {
		return recipeError(r.FilePath, "recipe is missing required field \"version\"")
	}
	if len(r.Sources) == 0 {
		return recipeError(r.FilePath, "recipe is missing required field \"sources\"")
	}
	if len(r.Hashes) != 0 && len(r.Hashes) != len(r.Sources) {
		return recipeError(r.FilePath, fmt.Sprintf(
			"hashes must be empty or match sources: %d hashes for %d sources",
			len(r.Hashes), len(r.Sources)))
	}

	if r.Release <= 0 {
		r.Release = 1
	}
	if r.Arch == "" {
		r.Arch = config.HostArch()
	}

	return nil
}

func recipeError(path, msg string) error {
	return issue.NewContext(issue.KindRecipe).
		WithOperation("validate recipe").
		WithResource(path).
		WithSuggestion("A recipe needs at least name, version and one sources entry").
		Wrap(fmt.Errorf("%s", msg)).
		BuildError()
}
