// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// initCmd creates the base directory layout.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create all storage directories under the base",
	Long: `Create the full directory layout under the base directory (MBUILD_BASE):
sources, build, stage, packages, logs, state, recipes and hooks.

Running init twice is harmless; existing directories are kept.`,
	Args: cobra.NoArgs,
	RunE: runInitCmd,
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	if err := cfg.Layout().Ensure(); err != nil {
		return err
	}

	fmt.Printf("%s Initialized %s\n", SuccessStyle.Render("✓"), PathStyle.Render(cfg.Base))
	return nil
}
