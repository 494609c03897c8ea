// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/engine"
)

// runCmd executes the full build pipeline for a recipe.
var runCmd = &cobra.Command{
	Use:   "run <recipe-path>",
	Short: "Build a recipe into a package archive",
	Long: `Execute the full pipeline for one recipe: fetch and verify sources,
extract, patch, run the prepare/build/check/package phases, optionally
strip the stage tree, and assemble the .ppkg archive in the packages
directory.

Phase output is captured in a timestamped log under <base>/logs.`,
	Args: cobra.ExactArgs(1),
	RunE: runRunCmd,
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	e := engine.New(cfg, logger)
	defer e.Close()

	archive, err := e.Run(cmd.Context(), args[0])
	if err != nil {
		printFailureContext(err, e.LogPath)
		return err
	}

	fmt.Printf("%s Built %s\n", SuccessStyle.Render("✓"), PathStyle.Render(archive))
	return nil
}
