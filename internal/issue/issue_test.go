// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := NewContext(KindFetch).
		WithOperation("fetch source").
		WithResource("http://example.com/x.tar.gz").
		Wrap(errors.New("connection refused")).
		BuildError()

	msg := err.Error()
	for _, want := range []string{"FetchError", "fetch source", "http://example.com/x.tar.gz", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestBuildRequiresOperation(t *testing.T) {
	if err := NewContext(KindIO).BuildError(); err != nil {
		t.Errorf("expected nil error without operation, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	base := NewContext(KindIntegrity).WithOperation("verify source").BuildError()
	wrapped := fmt.Errorf("run aborted: %w", base)

	if got := KindOf(wrapped); got != KindIntegrity {
		t.Errorf("KindOf = %v, want KindIntegrity", got)
	}
	if !Is(wrapped, KindIntegrity) {
		t.Error("Is(wrapped, KindIntegrity) = false")
	}
	if Is(wrapped, KindFetch) {
		t.Error("Is(wrapped, KindFetch) = true")
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", got)
	}
}

func TestFormatVerboseIncludesChain(t *testing.T) {
	inner := errors.New("disk full")
	err := NewContext(KindIO).
		WithOperation("write manifest").
		WithSuggestion("Free some space under the base directory").
		Wrap(fmt.Errorf("copy failed: %w", inner)).
		Build()

	out := err.Format(true)
	if !strings.Contains(out, "Error chain:") {
		t.Errorf("verbose format missing chain:\n%s", out)
	}
	if !strings.Contains(out, "disk full") {
		t.Errorf("verbose format missing root cause:\n%s", out)
	}
	if !strings.Contains(out, "Free some space") {
		t.Errorf("format missing suggestion:\n%s", out)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUsage:        "UsageError",
		KindRecipe:       "RecipeError",
		KindNotInstalled: "NotInstalledError",
		KindIO:           "IoError",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestCardsCoverActionableKinds(t *testing.T) {
	for _, k := range []Kind{KindRecipe, KindFetch, KindNotInstalled} {
		if CardFor(k) == nil {
			t.Errorf("no card for %v", k)
		}
	}
	if CardFor(KindIO) != nil {
		t.Error("unexpected card for KindIO")
	}
}
