// SPDX-License-Identifier: MPL-2.0

// Package engine drives the package lifecycle: the staged build pipeline
// for run, and re-packaging of the current stage tree for pack.
//
// The engine is single-threaded and synchronous; parallelism only exists
// inside phase subprocesses (make -j). All state lives in the Engine value
// — configuration, logger, and the per-run log sink — never in package
// globals.
package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/issue"
)

// Engine runs pipeline operations for one configuration.
type Engine struct {
	Cfg    *config.Config
	Layout config.Layout
	Logger *log.Logger

	// LogPath is the per-invocation build log, set once openLog ran.
	// The CLI points the user here on failure.
	LogPath string

	logFile *os.File
}

// New creates an engine for the given configuration.
func New(cfg *config.Config, logger *log.Logger) *Engine {
	return &Engine{
		Cfg:    cfg,
		Layout: cfg.Layout(),
		Logger: logger,
	}
}

// openLog creates the timestamped build log for one invocation.
func (e *Engine) openLog(name, op string) (io.Writer, error) {
	if e.logFile != nil {
		_ = e.logFile.Close()
		e.logFile = nil
	}

	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(e.Layout.Logs(), fmt.Sprintf("%s-%s-%s.log", name, op, stamp))

	f, err := os.Create(path)
	if err != nil {
		return nil, issue.Wrap(err, issue.KindIO, "create build log")
	}
	e.LogPath = path
	e.logFile = f
	return f, nil
}

// Close releases the build log. Safe to call when no log was opened.
func (e *Engine) Close() error {
	if e.logFile == nil {
		return nil
	}
	err := e.logFile.Close()
	e.logFile = nil
	return err
}

// banner marks a pipeline step in the build log.
func (e *Engine) banner(logw io.Writer, format string, args ...any) {
	fmt.Fprintf(logw, "==> "+format+"\n", args...)
}
