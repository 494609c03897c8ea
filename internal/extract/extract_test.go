// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fcanata061/mbuild/internal/issue"
)

func TestTarFlag(t *testing.T) {
	cases := map[string]string{
		"hello-1.0.tar.gz":  "-z",
		"hello-1.0.tgz":     "-z",
		"hello-1.0.tar.bz2": "-j",
		"hello-1.0.tbz2":    "-j",
		"hello-1.0.tar.xz":  "-J",
		"hello-1.0.txz":     "-J",
		"hello-1.0.tar":     "",
		"hello-1.0.bin":     "",
	}
	for name, want := range cases {
		if got := tarFlag(name); got != want {
			t.Errorf("tarFlag(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExtractTarball(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	src := t.TempDir()
	inner := filepath.Join(src, "hello-1.0")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inner, "Makefile"), []byte("all:\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(t.TempDir(), "hello-1.0.tar.gz")
	cmd := exec.Command("tar", "-C", src, "-czf", archive, "hello-1.0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("tar: %v\n%s", err, out)
	}

	buildDir := t.TempDir()
	if err := Extract(context.Background(), archive, buildDir, io.Discard); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(buildDir, "hello-1.0", "Makefile")); err != nil {
		t.Errorf("extracted tree incomplete: %v", err)
	}
}

func TestExtractZip(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "hello-1.0.zip")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("hello-1.0/README")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	buildDir := t.TempDir()
	if err := Extract(context.Background(), archive, buildDir, io.Discard); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(buildDir, "hello-1.0", "README"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hi" {
		t.Errorf("README = %q", data)
	}
}

func TestExtractBadArchive(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	archive := filepath.Join(t.TempDir(), "broken.tar.gz")
	if err := os.WriteFile(archive, []byte("not a tarball"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Extract(context.Background(), archive, t.TempDir(), io.Discard)
	if !issue.Is(err, issue.KindExtract) {
		t.Errorf("error = %v, want ExtractError", err)
	}
}

func TestSourceDirCanonical(t *testing.T) {
	buildDir := t.TempDir()
	canonical := filepath.Join(buildDir, "hello-1.0")
	if err := os.MkdirAll(canonical, 0o755); err != nil {
		t.Fatal(err)
	}
	// A decoy that also matches the prefix must lose to the canonical name.
	if err := os.MkdirAll(filepath.Join(buildDir, "hello-extras"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := SourceDir(buildDir, "hello", "1.0")
	if err != nil {
		t.Fatalf("SourceDir: %v", err)
	}
	if got != canonical {
		t.Errorf("SourceDir = %q, want %q", got, canonical)
	}
}

func TestSourceDirPrefixFallback(t *testing.T) {
	buildDir := t.TempDir()
	fallback := filepath.Join(buildDir, "hello-upstream")
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := SourceDir(buildDir, "hello", "1.0")
	if err != nil {
		t.Fatalf("SourceDir: %v", err)
	}
	if got != fallback {
		t.Errorf("SourceDir = %q, want %q", got, fallback)
	}
}

func TestSourceDirNotFound(t *testing.T) {
	buildDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(buildDir, "unrelated"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := SourceDir(buildDir, "hello", "1.0")
	if !errors.Is(err, ErrSourceDirNotFound) {
		t.Errorf("error = %v, want ErrSourceDirNotFound", err)
	}
	if !issue.Is(err, issue.KindExtract) {
		t.Errorf("error kind = %v, want ExtractError", issue.KindOf(err))
	}
}
