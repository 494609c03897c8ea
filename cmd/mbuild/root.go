// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging and full error chains.
	verbose bool

	// rootCmd represents the base command when called without subcommands.
	rootCmd = &cobra.Command{
		Use:   "mbuild",
		Short: "A minimalist source-to-binary package manager",
		Long: TitleStyle.Render("mbuild") + SubtitleStyle.Render(" - a minimalist source-to-binary package manager") + `

mbuild drives a reproducible pipeline from a declarative recipe — fetch,
verify, extract, patch, build, stage, package — producing a single .ppkg
archive that can be installed into, or removed from, a target root while a
local registry keeps removal safe.

Configuration comes from MBUILD_* environment variables; all storage lives
under a single base directory (MBUILD_BASE, default ./mbuild).

` + SubtitleStyle.Render("Examples:") + `
  mbuild init               Create the base directory layout
  mbuild run hello.cue      Build the hello recipe into a package
  mbuild install hello-1.0-1.x86_64.ppkg
  mbuild remove hello
  mbuild pack               Re-package the current stage tree`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and translates failures into the
// documented exit codes.
func Execute() {
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// newLogger builds the engine's console logger.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "mbuild",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// loadConfig resolves configuration for one command invocation.
func loadConfig(logger *log.Logger) (*config.Config, error) {
	cfg, err := config.Load(logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration", "cfg", cfg.String())
	return cfg, nil
}

// printFailureContext adds context around the error fang prints: the full
// suggestion list in verbose mode, the help card for kinds a user can act
// on, and the build log location. The error message itself is rendered by
// fang, once.
func printFailureContext(err error, logPath string) {
	var ie *issue.Error
	if verbose && errors.As(err, &ie) {
		fmt.Fprintln(os.Stderr, ie.Format(true))
	}

	if card := issue.CardFor(issue.KindOf(err)); card != nil {
		if rendered, renderErr := card.Render(); renderErr == nil {
			fmt.Fprintln(os.Stderr, rendered)
		}
	}

	if logPath != "" {
		fmt.Fprintln(os.Stderr, SubtitleStyle.Render("build log: ")+PathStyle.Render(logPath))
	}
}
