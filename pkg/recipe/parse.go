// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	_ "embed"
	"os"

	"github.com/fcanata061/mbuild/internal/cueutil"
	"github.com/fcanata061/mbuild/internal/issue"
)

//go:embed recipe_schema.cue
var recipeSchema string

// Parse reads and parses a recipe from the given path. A missing recipe
// file is a usage error (wrong argument), not a recipe error.
func Parse(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := issue.KindRecipe
		if os.IsNotExist(err) {
			kind = issue.KindUsage
		}
		return nil, issue.NewContext(kind).
			WithOperation("read recipe").
			WithResource(path).
			WithSuggestion("Recipe paths resolve relative to the working directory").
			Wrap(err).
			BuildError()
	}

	return ParseBytes(data, path)
}

// ParseBytes parses recipe content from bytes. The schema drives the
// 3-step CUE flow: compile schema → compile user data → validate and
// decode.
func ParseBytes(data []byte, path string) (*Recipe, error) {
	r, err := cueutil.ParseAndDecode[Recipe](recipeSchema, data, "#Recipe", cueutil.WithFilename(path))
	if err != nil {
		return nil, issue.NewContext(issue.KindRecipe).
			WithOperation("parse recipe").
			WithResource(path).
			WithSuggestion("Recipes are CUE files validated against the #Recipe schema").
			Wrap(err).
			BuildError()
	}

	r.FilePath = path
	if err := r.validate(); err != nil {
		return nil, err
	}

	return r, nil
}
