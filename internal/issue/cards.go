// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Card is a markdown help text rendered when a failure of its kind reaches
// the CLI. Only kinds a user can act on directly have a card.
type Card struct {
	kind  Kind
	mdMsg string
}

// Kind returns the kind this card documents.
func (c *Card) Kind() Kind {
	return c.kind
}

// Render renders the card's markdown for the terminal.
func (c *Card) Render() (string, error) {
	return render(c.mdMsg, "auto")
}

var (
	render = glamour.Render

	recipeCard = &Card{
		kind: KindRecipe,
		mdMsg: `
# The recipe could not be loaded!

Recipes are CUE files that must define at least ` + "`name`" + `, ` + "`version`" + `
and one entry in ` + "`sources`" + `.

## Example recipe:
~~~cue
name:    "hello"
version: "2.12.1"
sources: ["https://ftp.gnu.org/gnu/hello/hello-2.12.1.tar.gz"]
~~~

## Things you can try:
- Check the error message above for the offending field
- When listing hashes, provide exactly one per source`,
	}

	fetchCard = &Card{
		kind: KindFetch,
		mdMsg: `
# A source could not be downloaded!

All download attempts failed.

## Things you can try:
- Check the URL in the recipe's ` + "`sources`" + ` list
- Check your network connection
- Raise the attempt count:
~~~
$ MBUILD_DOWNLOAD_RETRIES=5 mbuild run <recipe>
~~~`,
	}

	notInstalledCard = &Card{
		kind: KindNotInstalled,
		mdMsg: `
# That package is not installed!

The registry has no entry under this name.

## Things you can try:
- List what is installed:
~~~
$ mbuild list
~~~
- Check for typos in the package name`,
	}

	cards = map[Kind]*Card{
		recipeCard.Kind():       recipeCard,
		fetchCard.Kind():        fetchCard,
		notInstalledCard.Kind(): notInstalledCard,
	}
)

// CardFor returns the card for the given kind, or nil when the kind has none.
func CardFor(kind Kind) *Card {
	return cards[kind]
}

// Cards returns every registered card, ordered by kind.
func Cards() []*Card {
	ks := maps.Keys(cards)
	slices.Sort(ks)
	out := make([]*Card, 0, len(ks))
	for _, k := range ks {
		out = append(out, cards[k])
	}
	return out
}
