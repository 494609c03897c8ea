// SPDX-License-Identifier: MPL-2.0

// Package extract unpacks source archives into the build area.
//
// The archive format is dispatched on the filename suffix. Everything
// tar-shaped goes through the tar tool; zstd archives fall back to a pipe
// through the standalone decompressor when tar lacks native support; zip
// archives are expanded in-process.
package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fcanata061/mbuild/internal/issue"
)

// ErrSourceDirNotFound reports that no source directory could be resolved
// inside the build tree after extraction. The CLI maps it to its own exit
// code.
var ErrSourceDirNotFound = errors.New("source directory not found after extraction")

// Extract unpacks archive into buildDir.
func Extract(ctx context.Context, archive, buildDir string, logw io.Writer) error {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return issue.Wrap(err, issue.KindIO, "create build directory")
	}

	name := strings.ToLower(filepath.Base(archive))

	var err error
	switch {
	case strings.HasSuffix(name, ".zip"):
		err = unzip(archive, buildDir)
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		err = untarZstd(ctx, archive, buildDir, logw)
	default:
		err = untar(ctx, archive, buildDir, tarFlag(name), logw)
	}

	if err != nil {
		return issue.NewContext(issue.KindExtract).
			WithOperation("extract source archive").
			WithResource(archive).
			Wrap(err).
			BuildError()
	}
	return nil
}

// tarFlag maps a filename suffix to the tar compression flag. Plain and
// unknown suffixes extract as uncompressed tar.
func tarFlag(name string) string {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return "-z"
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return "-j"
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return "-J"
	default:
		return ""
	}
}

func untar(ctx context.Context, archive, dir, flag string, logw io.Writer) error {
	args := []string{"-C", dir}
	if flag != "" {
		args = append(args, flag)
	}
	args = append(args, "-xf", archive)

	cmd := exec.CommandContext(ctx, "tar", args...)
	cmd.Stdout = logw
	cmd.Stderr = logw
	return cmd.Run()
}

// untarZstd prefers tar's native zstd support and falls back to piping the
// archive through a standalone zstd.
func untarZstd(ctx context.Context, archive, dir string, logw io.Writer) error {
	cmd := exec.CommandContext(ctx, "tar", "-C", dir, "--zstd", "-xf", archive)
	cmd.Stdout = logw
	cmd.Stderr = logw
	if err := cmd.Run(); err == nil {
		return nil
	}

	if _, err := exec.LookPath("zstd"); err != nil {
		return fmt.Errorf("neither tar with zstd support nor a standalone zstd is available")
	}

	zstdCmd := exec.CommandContext(ctx, "zstd", "-q", "-dc", archive)
	tarCmd := exec.CommandContext(ctx, "tar", "-C", dir, "-xf", "-")
	zstdCmd.Stderr = logw
	tarCmd.Stdout = logw
	tarCmd.Stderr = logw

	pipe, err := zstdCmd.StdoutPipe()
	if err != nil {
		return err
	}
	tarCmd.Stdin = pipe

	if err := zstdCmd.Start(); err != nil {
		return err
	}
	if err := tarCmd.Start(); err != nil {
		_ = zstdCmd.Wait()
		return err
	}
	if err := zstdCmd.Wait(); err != nil {
		_ = tarCmd.Wait()
		return err
	}
	return tarCmd.Wait()
}

// unzip expands a zip archive, refusing entries that would escape dir.
func unzip(archive, dir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, file := range zr.File {
		dest := filepath.Join(dir, filepath.FromSlash(file.Name))

		rel, err := filepath.Rel(dir, dest)
		if err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("archive entry escapes extraction directory: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, file.Mode()); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := extractZipFile(file, dest); err != nil {
			return fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// SourceDir resolves the unpacked source tree inside buildDir: the
// canonical <name>-<version> when present, otherwise the first child
// directory whose name starts with <name>.
func SourceDir(buildDir, name, version string) (string, error) {
	canonical := filepath.Join(buildDir, name+"-"+version)
	if info, err := os.Stat(canonical); err == nil && info.IsDir() {
		return canonical, nil
	}

	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return "", issue.Wrap(err, issue.KindIO, "list build directory")
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), name) {
			return filepath.Join(buildDir, entry.Name()), nil
		}
	}

	return "", issue.NewContext(issue.KindExtract).
		WithOperation("locate source directory").
		WithResource(buildDir).
		WithSuggestion("The archive may unpack under an unexpected name; set a prepare phase to rename it").
		Wrap(ErrSourceDirNotFound).
		BuildError()
}
