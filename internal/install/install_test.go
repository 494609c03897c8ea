// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/pkgfile"
	"github.com/fcanata061/mbuild/internal/registry"
)

func testInstaller(t *testing.T) (*Installer, string) {
	t.Helper()
	base := t.TempDir()
	root := t.TempDir()
	cfg := &config.Config{Base: base, Root: root, Prefix: "/usr"}
	if err := cfg.Layout().Ensure(); err != nil {
		t.Fatal(err)
	}
	in := &Installer{
		Cfg:    cfg,
		Reg:    registry.New(cfg.Layout().State()),
		Logger: log.New(io.Discard),
		Log:    io.Discard,
	}
	return in, root
}

// buildTestPackage assembles a real .ppkg through the packager path.
func buildTestPackage(t *testing.T, in *Installer, name string, hook string) string {
	t.Helper()

	stage := t.TempDir()
	mustWrite(t, filepath.Join(stage, "usr/bin/"+name), "#!/bin/sh\necho hi\n")
	mustWrite(t, filepath.Join(stage, "usr/share/doc/"+name+"/README"), "docs\n")

	m := pkgfile.Meta{Name: name, Version: "1.0", Release: 1, Arch: "x86_64", Prefix: "/usr"}
	manifest, err := pkgfile.ComputeManifest(stage)
	if err != nil {
		t.Fatal(err)
	}
	if err := pkgfile.WriteControl(stage, m, manifest, hook); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(in.Cfg.Layout().Packages(), m.ArchiveName())
	if err := pkgfile.BuildArchive(context.Background(), stage, out, pkgfile.CompGzip, io.Discard); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestResolve(t *testing.T) {
	in, _ := testInstaller(t)
	pkgDir := in.Cfg.Layout().Packages()
	mustWrite(t, filepath.Join(pkgDir, "hello-1.0-1.x86_64.ppkg"), "x")

	got, err := in.Resolve("hello-1.0-1.x86_64.ppkg")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != filepath.Join(pkgDir, "hello-1.0-1.x86_64.ppkg") {
		t.Errorf("Resolve = %q", got)
	}

	if _, err := in.Resolve("ghost.ppkg"); !issue.Is(err, issue.KindUsage) {
		t.Errorf("Resolve(ghost) error = %v, want UsageError", err)
	}
}

func TestInstallPlacesPayloadAndRegisters(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	in, root := testInstaller(t)
	archive := buildTestPackage(t, in, "hello", "")

	meta, err := in.Install(context.Background(), archive)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if meta.Name != "hello" {
		t.Errorf("meta = %+v", meta)
	}

	for _, path := range []string{"usr/bin/hello", "usr/share/doc/hello/README"} {
		if _, err := os.Stat(filepath.Join(root, path)); err != nil {
			t.Errorf("payload path missing from root: %v", err)
		}
	}
	// CONTROL must never reach the target root.
	if _, err := os.Stat(filepath.Join(root, pkgfile.ControlDir)); !os.IsNotExist(err) {
		t.Error("CONTROL leaked into the target root")
	}

	if !in.Reg.Has("hello") {
		t.Error("package not registered")
	}
	manifest, err := in.Reg.Manifest("hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest) != 2 {
		t.Errorf("registered manifest = %v", manifest)
	}

	// The install log is appended best-effort.
	data, err := os.ReadFile(filepath.Join(in.Cfg.Layout().State(), "installed.index"))
	if err != nil {
		t.Fatalf("installed.index: %v", err)
	}
	if want := "hello-1.0-1"; !strings.Contains(string(data), want) {
		t.Errorf("installed.index = %q, missing %q", data, want)
	}
}

func TestInstallRegistersHook(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	in, _ := testInstaller(t)
	hookSrc := filepath.Join(t.TempDir(), "hook.sh")
	mustWrite(t, hookSrc, "#!/bin/sh\necho removed\n")
	archive := buildTestPackage(t, in, "hooked", hookSrc)

	if _, err := in.Install(context.Background(), archive); err != nil {
		t.Fatalf("Install: %v", err)
	}

	info, err := os.Stat(in.Reg.HookPath("hooked"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("registered hook is not executable")
	}
}

func TestInstallRejectsGarbageArchive(t *testing.T) {
	in, _ := testInstaller(t)
	bogus := filepath.Join(t.TempDir(), "bogus.ppkg")
	mustWrite(t, bogus, "not an archive")

	if _, err := in.Install(context.Background(), bogus); err == nil {
		t.Error("expected error for garbage archive")
	}
	if in.Reg.Has("bogus") {
		t.Error("garbage archive produced a registry entry")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
