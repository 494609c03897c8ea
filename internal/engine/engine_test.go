// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/pkgfile"
)

func needTar(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := &config.Config{
		Base:            t.TempDir(),
		Root:            "/",
		Prefix:          "/usr",
		Jobs:            1,
		PkgComp:         pkgfile.CompGzip,
		Toolchain:       config.ProfileSystem,
		Strip:           false,
		DownloadRetries: 1,
	}
	e := New(cfg, log.New(io.Discard))
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// serveSourceTarball builds hello-1.0.tar.gz with a trivial tree and
// serves it over HTTP.
func serveSourceTarball(t *testing.T) *httptest.Server {
	t.Helper()

	work := t.TempDir()
	inner := filepath.Join(work, "hello-1.0")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inner, "hello.c"), []byte("int main(void){return 0;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(work, "hello-1.0.tar.gz")
	cmd := exec.Command("tar", "-C", work, "-czf", archive, "hello-1.0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("tar: %v\n%s", err, out)
	}
	data, err := os.ReadFile(archive)
	if err != nil {
		t.Fatal(err)
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
}

func writeRecipe(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hello.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCanonicalBuild(t *testing.T) {
	needTar(t)

	srv := serveSourceTarball(t)
	defer srv.Close()
	e := testEngine(t)

	recipePath := writeRecipe(t, fmt.Sprintf(`
name:    "hello"
version: "1.0"
sources: [%q]
phases: {
	build:     "echo compiled > hello.out"
	"package": "mkdir -p $STAGE$PREFIX/bin && cp hello.out $STAGE$PREFIX/bin/hello"
}
`, srv.URL+"/hello-1.0.tar.gz"))

	archive, err := e.Run(context.Background(), recipePath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantName := "hello-1.0-1." + config.HostArch() + pkgfile.ArchiveSuffix
	if filepath.Base(archive) != wantName {
		t.Errorf("archive = %q, want %q", filepath.Base(archive), wantName)
	}
	if _, err := os.Stat(archive); err != nil {
		t.Fatalf("archive missing: %v", err)
	}

	meta, err := pkgfile.ReadMeta(context.Background(), archive)
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if meta.Name != "hello" || meta.Version != "1.0" || meta.Release != 1 || meta.Prefix != "/usr" {
		t.Errorf("meta = %+v", meta)
	}

	manifest, err := pkgfile.ComputeManifest(e.Layout.Stage())
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest) != 1 || manifest[0] != "./usr/bin/hello" {
		t.Errorf("manifest = %v", manifest)
	}

	if _, err := os.Stat(e.LogPath); err != nil {
		t.Errorf("build log missing: %v", err)
	}
}

func TestRunMissingNameCreatesNothing(t *testing.T) {
	e := testEngine(t)
	recipePath := writeRecipe(t, `
version: "1.0"
sources: ["http://localhost/x.tar.gz"]
`)

	_, err := e.Run(context.Background(), recipePath)
	if !issue.Is(err, issue.KindRecipe) {
		t.Fatalf("error = %v, want RecipeError", err)
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("error %q does not mention name", err)
	}
	if _, statErr := os.Stat(e.Layout.Build()); !os.IsNotExist(statErr) {
		t.Error("build directory created despite recipe error")
	}
}

func TestRunHashMismatchStopsBeforeExtraction(t *testing.T) {
	needTar(t)

	srv := serveSourceTarball(t)
	defer srv.Close()
	e := testEngine(t)

	recipePath := writeRecipe(t, fmt.Sprintf(`
name:    "hello"
version: "1.0"
sources: [%q]
hashes:  [%q]
`, srv.URL+"/hello-1.0.tar.gz", strings.Repeat("0", 64)))

	_, err := e.Run(context.Background(), recipePath)
	if !issue.Is(err, issue.KindIntegrity) {
		t.Fatalf("error = %v, want IntegrityError", err)
	}

	entries, _ := os.ReadDir(e.Layout.BuildDir("hello", "1.0"))
	if len(entries) != 0 {
		t.Errorf("extraction happened despite hash mismatch: %v", entries)
	}
}

func TestRunSoftCheckFailureStillPackages(t *testing.T) {
	needTar(t)

	srv := serveSourceTarball(t)
	defer srv.Close()
	e := testEngine(t)

	recipePath := writeRecipe(t, fmt.Sprintf(`
name:    "hello"
version: "1.0"
sources: [%q]
phases: {
	build:     "echo ok > hello.out"
	check:     "exit 1"
	"package": "mkdir -p $STAGE$PREFIX/bin && cp hello.out $STAGE$PREFIX/bin/hello"
}
`, srv.URL+"/hello-1.0.tar.gz"))

	archive, err := e.Run(context.Background(), recipePath)
	if err != nil {
		t.Fatalf("Run with failing check: %v", err)
	}
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestRunHardBuildFailureAborts(t *testing.T) {
	needTar(t)

	srv := serveSourceTarball(t)
	defer srv.Close()
	e := testEngine(t)

	recipePath := writeRecipe(t, fmt.Sprintf(`
name:    "hello"
version: "1.0"
sources: [%q]
phases: {
	build: "exit 3"
}
`, srv.URL+"/hello-1.0.tar.gz"))

	_, err := e.Run(context.Background(), recipePath)
	if !issue.Is(err, issue.KindPhase) {
		t.Fatalf("error = %v, want PhaseError", err)
	}
	if !strings.Contains(err.Error(), "build") {
		t.Errorf("error %q does not name the phase", err)
	}

	entries, _ := os.ReadDir(e.Layout.Packages())
	if len(entries) != 0 {
		t.Errorf("package emitted despite hard failure: %v", entries)
	}
}

func TestPackReusesStage(t *testing.T) {
	needTar(t)

	srv := serveSourceTarball(t)
	defer srv.Close()
	e := testEngine(t)

	recipePath := writeRecipe(t, fmt.Sprintf(`
name:    "hello"
version: "1.0"
sources: [%q]
phases: {
	build:     "echo ok > hello.out"
	"package": "mkdir -p $STAGE$PREFIX/bin && cp hello.out $STAGE$PREFIX/bin/hello"
}
`, srv.URL+"/hello-1.0.tar.gz"))

	first, err := e.Run(context.Background(), recipePath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := os.Remove(first); err != nil {
		t.Fatal(err)
	}

	second, err := e.Pack(context.Background())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if second != first {
		t.Errorf("Pack produced %q, want %q", second, first)
	}
	if _, err := os.Stat(second); err != nil {
		t.Errorf("re-packaged archive missing: %v", err)
	}
}

func TestPackWithoutPriorRun(t *testing.T) {
	e := testEngine(t)

	_, err := e.Pack(context.Background())
	if !issue.Is(err, issue.KindUsage) {
		t.Errorf("error = %v, want UsageError", err)
	}
}

func TestSourceFilename(t *testing.T) {
	cases := map[string]string{
		"https://ftp.gnu.org/gnu/hello/hello-2.12.1.tar.gz": "hello-2.12.1.tar.gz",
		"http://host/path/x.tar.xz?mirror=1":                "x.tar.xz",
	}
	for in, want := range cases {
		if got := sourceFilename(in); got != want {
			t.Errorf("sourceFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
