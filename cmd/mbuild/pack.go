// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/engine"
)

// packCmd re-packages the current stage tree without rebuilding.
var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Re-package the current stage tree without rebuilding",
	Long: `Assemble a fresh .ppkg archive from whatever the last run left in the
stage tree. Useful after hand-editing the staged files or switching the
package compression.`,
	Args: cobra.NoArgs,
	RunE: runPackCmd,
}

func runPackCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	e := engine.New(cfg, logger)
	defer e.Close()

	archive, err := e.Pack(cmd.Context())
	if err != nil {
		printFailureContext(err, e.LogPath)
		return err
	}

	fmt.Printf("%s Packaged %s\n", SuccessStyle.Render("✓"), PathStyle.Render(archive))
	return nil
}
