// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/registry"
	"github.com/fcanata061/mbuild/internal/remove"
)

// removeCmd removes an installed package from the target root.
var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed package from the target root",
	Long: `Delete every file the named package installed, in reverse manifest
order, prune directories left empty, run the post-remove hooks, and drop
the registry entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemoveCmd,
}

func runRemoveCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	rm := &remove.Remover{
		Cfg:    cfg,
		Reg:    registry.New(cfg.Layout().State()),
		Logger: logger,
		Log:    cmd.ErrOrStderr(),
	}

	if err := rm.Remove(cmd.Context(), args[0]); err != nil {
		printFailureContext(err, "")
		return err
	}

	fmt.Printf("%s Removed %s\n", SuccessStyle.Render("✓"), PathStyle.Render(args[0]))
	return nil
}
