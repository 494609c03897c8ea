// SPDX-License-Identifier: MPL-2.0

package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/pkgfile"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BASE", "ROOT", "PREFIX", "JOBS", "PKG_COMP", "TOOLCHAIN", "STRIP", "DOWNLOAD_RETRIES"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		os.Unsetenv(EnvPrefix + "_" + key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cwd, _ := os.Getwd()
	if cfg.Base != filepath.Join(cwd, AppName) {
		t.Errorf("default base = %q", cfg.Base)
	}
	if cfg.Root != "/" {
		t.Errorf("default root = %q", cfg.Root)
	}
	if cfg.Prefix != "/usr" {
		t.Errorf("default prefix = %q", cfg.Prefix)
	}
	if cfg.Jobs < 1 {
		t.Errorf("default jobs = %d", cfg.Jobs)
	}
	if cfg.PkgComp != pkgfile.CompZstd {
		t.Errorf("default pkg_comp = %v", cfg.PkgComp)
	}
	if cfg.Toolchain != ProfileSystem {
		t.Errorf("default toolchain = %q", cfg.Toolchain)
	}
	if !cfg.Strip {
		t.Error("default strip = false")
	}
	if cfg.DownloadRetries != 3 {
		t.Errorf("default download_retries = %d", cfg.DownloadRetries)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	base := t.TempDir()
	t.Setenv("MBUILD_BASE", base)
	t.Setenv("MBUILD_ROOT", "/mnt/target")
	t.Setenv("MBUILD_PREFIX", "/opt")
	t.Setenv("MBUILD_JOBS", "2")
	t.Setenv("MBUILD_PKG_COMP", "xz")
	t.Setenv("MBUILD_TOOLCHAIN", "llvm")
	t.Setenv("MBUILD_STRIP", "0")
	t.Setenv("MBUILD_DOWNLOAD_RETRIES", "5")

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Base != base {
		t.Errorf("base = %q, want %q", cfg.Base, base)
	}
	if cfg.Root != "/mnt/target" || cfg.Prefix != "/opt" || cfg.Jobs != 2 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.PkgComp != pkgfile.CompXz {
		t.Errorf("pkg_comp = %v", cfg.PkgComp)
	}
	if cfg.Toolchain != ProfileLLVM {
		t.Errorf("toolchain = %q", cfg.Toolchain)
	}
	if cfg.Strip {
		t.Error("strip should be disabled")
	}
	if cfg.DownloadRetries != 5 {
		t.Errorf("download_retries = %d", cfg.DownloadRetries)
	}
}

func TestLoadUnknownCompressionFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MBUILD_PKG_COMP", "lz4")

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PkgComp != pkgfile.CompNone {
		t.Errorf("pkg_comp = %v, want fallback to none", cfg.PkgComp)
	}
}

func TestLayoutEnsureIdempotent(t *testing.T) {
	l := Layout{Base: t.TempDir()}

	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := l.Ensure(); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}

	for _, dir := range []string{l.Sources(), l.Build(), l.Stage(), l.Packages(), l.Logs(), l.State(), l.Recipes()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("missing layout directory %s: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(l.Hooks(), "post-remove")); err != nil {
		t.Errorf("missing hooks directory: %v", err)
	}
}

func TestBuildDir(t *testing.T) {
	l := Layout{Base: "/b"}
	if got := l.BuildDir("hello", "1.0"); got != "/b/build/hello-1.0" {
		t.Errorf("BuildDir = %q", got)
	}
}
