// SPDX-License-Identifier: MPL-2.0

package pkgfile

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fcanata061/mbuild/internal/issue"
	cp "github.com/otiai10/copy"
)

// WriteControl creates the CONTROL directory inside the stage tree, writing
// meta and the manifest, and installing the optional post-remove hook with
// executable permission. postRemoveSrc may be empty.
func WriteControl(stageDir string, m Meta, manifest []string, postRemoveSrc string) error {
	ctl := filepath.Join(stageDir, ControlDir)
	if err := os.MkdirAll(ctl, 0o755); err != nil {
		return issue.Wrap(err, issue.KindIO, "create control directory")
	}

	if err := os.WriteFile(filepath.Join(ctl, "meta"), m.Encode(), 0o644); err != nil {
		return issue.Wrap(err, issue.KindIO, "write control meta")
	}
	if err := os.WriteFile(filepath.Join(ctl, "manifest"), EncodeManifest(manifest), 0o644); err != nil {
		return issue.Wrap(err, issue.KindIO, "write control manifest")
	}

	if postRemoveSrc != "" {
		hook := filepath.Join(ctl, "post-remove")
		if err := cp.Copy(postRemoveSrc, hook); err != nil {
			return issue.NewContext(issue.KindIO).
				WithOperation("install post-remove hook").
				WithResource(postRemoveSrc).
				Wrap(err).
				BuildError()
		}
		if err := os.Chmod(hook, 0o755); err != nil {
			return issue.Wrap(err, issue.KindIO, "mark post-remove hook executable")
		}
	}

	return nil
}

// BuildArchive assembles the package archive from the stage tree with the
// given compression. For zstd it prefers tar's native support and falls
// back to piping through a standalone zstd when tar lacks it.
func BuildArchive(ctx context.Context, stageDir, outPath string, comp Compression, logw io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return issue.Wrap(err, issue.KindIO, "create packages directory")
	}

	args := []string{"-C", stageDir}
	if flag := comp.tarFlag(); flag != "" {
		args = append(args, flag)
	}
	args = append(args, "-cf", outPath, ".")

	cmd := exec.CommandContext(ctx, "tar", args...)
	cmd.Stdout = logw
	cmd.Stderr = logw
	err := cmd.Run()
	if err == nil {
		return nil
	}

	if comp == CompZstd {
		if pipeErr := zstdPipeCreate(ctx, stageDir, outPath, logw); pipeErr == nil {
			return nil
		}
	}

	_ = os.Remove(outPath)
	return issue.NewContext(issue.KindPack).
		WithOperation("assemble package archive").
		WithResource(outPath).
		Wrap(err).
		BuildError()
}

// zstdPipeCreate runs `tar -cf - . | zstd -q -f -o out` for archivers
// without native zstd support.
func zstdPipeCreate(ctx context.Context, stageDir, outPath string, logw io.Writer) error {
	if _, err := exec.LookPath("zstd"); err != nil {
		return err
	}

	tarCmd := exec.CommandContext(ctx, "tar", "-C", stageDir, "-cf", "-", ".")
	zstdCmd := exec.CommandContext(ctx, "zstd", "-q", "-f", "-o", outPath)
	tarCmd.Stderr = logw
	zstdCmd.Stderr = logw

	pipe, err := tarCmd.StdoutPipe()
	if err != nil {
		return err
	}
	zstdCmd.Stdin = pipe

	if err := tarCmd.Start(); err != nil {
		return err
	}
	if err := zstdCmd.Start(); err != nil {
		_ = tarCmd.Wait()
		return err
	}
	if err := tarCmd.Wait(); err != nil {
		_ = zstdCmd.Wait()
		return err
	}
	return zstdCmd.Wait()
}

// Unpack extracts a package archive into destDir, detecting the
// compression from the archive's magic bytes (the .ppkg suffix carries no
// compression hint).
func Unpack(ctx context.Context, archive, destDir string, logw io.Writer) error {
	comp, err := DetectCompression(archive)
	if err != nil {
		return issue.Wrap(err, issue.KindIO, "inspect package archive")
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return issue.Wrap(err, issue.KindIO, "create extraction directory")
	}

	args := []string{"-C", destDir}
	if flag := comp.tarFlag(); flag != "" {
		args = append(args, flag)
	}
	args = append(args, "-xpf", archive)

	cmd := exec.CommandContext(ctx, "tar", args...)
	cmd.Stdout = logw
	cmd.Stderr = logw
	err = cmd.Run()
	if err == nil {
		return nil
	}

	if comp == CompZstd {
		if pipeErr := zstdPipeExtract(ctx, archive, destDir, logw); pipeErr == nil {
			return nil
		}
	}

	return issue.NewContext(issue.KindExtract).
		WithOperation("unpack package archive").
		WithResource(archive).
		Wrap(err).
		BuildError()
}

// zstdPipeExtract runs `zstd -dc archive | tar -xpf - -C dest`.
func zstdPipeExtract(ctx context.Context, archive, destDir string, logw io.Writer) error {
	if _, err := exec.LookPath("zstd"); err != nil {
		return err
	}

	zstdCmd := exec.CommandContext(ctx, "zstd", "-q", "-dc", archive)
	tarCmd := exec.CommandContext(ctx, "tar", "-C", destDir, "-xpf", "-")
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
