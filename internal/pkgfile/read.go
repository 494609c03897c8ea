// SPDX-License-Identifier: MPL-2.0

package pkgfile

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/ulikunitz/xz"
)

// ReadMeta streams CONTROL/meta out of a package archive without unpacking
// it. gzip and bzip2 decode via the standard library, xz via ulikunitz/xz;
// zstd has no stdlib decoder, so it is piped through the standalone zstd
// tool.
func ReadMeta(ctx context.Context, archive string) (Meta, error) {
	comp, err := DetectCompression(archive)
	if err != nil {
		return Meta{}, issue.Wrap(err, issue.KindIO, "inspect package archive")
	}

	f, err := os.Open(archive)
	if err != nil {
		return Meta{}, issue.Wrap(err, issue.KindIO, "open package archive")
	}
	defer f.Close()

	var (
		r    io.Reader
		wait func() error
	)
	switch comp {
	case CompGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Meta{}, badArchive(archive, err)
		}
		defer gz.Close()
		r = gz
	case CompBzip2:
		r = bzip2.NewReader(f)
	case CompXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return Meta{}, badArchive(archive, err)
		}
		r = xr
	case CompZstd:
		cmd := exec.CommandContext(ctx, "zstd", "-q", "-dc", archive)
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return Meta{}, badArchive(archive, err)
		}
		if err := cmd.Start(); err != nil {
			return Meta{}, issue.NewContext(issue.KindExtract).
				WithOperation("decompress package archive").
				WithResource(archive).
				WithSuggestion("Install the zstd tool or switch MBUILD_PKG_COMP to another compression").
				Wrap(err).
				BuildError()
		}
		r = pipe
		wait = func() error {
			_ = pipe.Close()
			return cmd.Wait()
		}
	default:
		r = f
	}

	meta, err := scanForMeta(r)
	if wait != nil {
		// Draining is unnecessary once meta is found; the tool dying on a
		// closed pipe is expected.
		_ = wait()
	}
	if err != nil {
		return Meta{}, badArchive(archive, err)
	}
	return meta, nil
}

func scanForMeta(r io.Reader) (Meta, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return Meta{}, fmt.Errorf("no %s/meta entry found", ControlDir)
		}
		if err != nil {
			return Meta{}, err
		}
		name := hdr.Name
		if name == ControlDir+"/meta" || name == "./"+ControlDir+"/meta" {
			data, err := io.ReadAll(io.LimitReader(tr, 1<<16))
			if err != nil {
				return Meta{}, err
			}
			return ParseMeta(data)
		}
	}
}

func badArchive(archive string, err error) error {
	return issue.NewContext(issue.KindPack).
		WithOperation("read package metadata").
		WithResource(archive).
		WithSuggestion("Check the file is a .ppkg produced by mbuild").
		Wrap(err).
		BuildError()
}
