// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads recipe sources into the shared cache and
// verifies their content hashes.
//
// Sources are treated as immutable by filename: when the destination file
// already exists, no network transfer happens. Downloads retry with a
// linear back-off and land under a temporary name first, so an interrupted
// transfer never poisons the cache.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/issue"
)

// Options tune a fetch.
type Options struct {
	// Retries is the maximum number of download attempts.
	Retries int
	// Logger receives progress and warnings.
	Logger *log.Logger
	// Client overrides the HTTP client (tests).
	Client *http.Client
	// Sleep overrides the back-off sleep (tests).
	Sleep func(time.Duration)
}

func (o *Options) fill() {
	if o.Retries < 1 {
		o.Retries = 1
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
}

// Fetch downloads url into dest unless dest already exists, then verifies
// the expected SHA-256 digest when one is given. An empty expectedHash
// skips verification with a visible warning, since unverified sources are
// a recipe author's choice the user should still notice.
func Fetch(ctx context.Context, url, dest, expectedHash string, opts Options) error {
	opts.fill()

	if _, err := os.Stat(dest); err == nil {
		opts.Logger.Info("source cached", "file", filepath.Base(dest))
		return verify(dest, expectedHash, opts.Logger)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return issue.Wrap(err, issue.KindIO, "create sources directory")
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		opts.Logger.Info("fetching", "url", url, "attempt", attempt)

		lastErr = download(ctx, opts.Client, url, dest)
		if lastErr == nil {
			return verify(dest, expectedHash, opts.Logger)
		}

		opts.Logger.Warn("download failed", "url", url, "err", lastErr)
		if attempt < opts.Retries {
			opts.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return issue.NewContext(issue.KindFetch).
		WithOperation("fetch source").
		WithResource(url).
		WithSuggestion("Check the URL and your network connection").
		WithSuggestion("Raise MBUILD_DOWNLOAD_RETRIES for flaky mirrors").
		Wrap(lastErr).
		BuildError()
}

// download performs one transfer attempt into a temporary sibling of dest,
// renamed into place only on success.
func download(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = os.Remove(part)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(part)
		return err
	}

	return os.Rename(part, dest)
}

// verify checks dest against the expected digest. A hash mismatch removes
// the cached file so the next run re-downloads instead of failing forever.
func verify(dest, expectedHash string, logger *log.Logger) error {
	if expectedHash == "" {
		logger.Warn("source is unverified (no hash in recipe)", "file", filepath.Base(dest))
		return nil
	}

	got, err := SHA256(dest)
	if err != nil {
		return issue.Wrap(err, issue.KindIO, "hash source")
	}

	if !strings.EqualFold(got, expectedHash) {
		_ = os.Remove(dest)
		return issue.NewContext(issue.KindIntegrity).
			WithOperation("verify source").
			WithResource(dest).
			WithSuggestion("The upstream file changed or the recipe hash is stale").
			Wrap(fmt.Errorf("sha256 mismatch: got %s, want %s", got, expectedHash)).
			BuildError()
	}

	logger.Info("source verified", "file", filepath.Base(dest))
	return nil
}

// SHA256 returns the hex digest of the file at path.
func SHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
