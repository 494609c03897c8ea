// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/install"
	"github.com/fcanata061/mbuild/internal/registry"
)

// installCmd installs a package archive into the target root.
var installCmd = &cobra.Command{
	Use:   "install <pkg>",
	Short: "Install a package archive into the target root",
	Long: `Unpack a .ppkg archive into the target root (MBUILD_ROOT) and register
it in the installed database. <pkg> is an absolute path or a filename
resolved against the packages directory.

Installation streams files directly into the root; a failure mid-copy
leaves the root partially populated with no registry entry, and re-running
install is the recovery path.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstallCmd,
}

func runInstallCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	if err := cfg.Layout().Ensure(); err != nil {
		return err
	}

	in := &install.Installer{
		Cfg:    cfg,
		Reg:    registry.New(cfg.Layout().State()),
		Logger: logger,
		Log:    cmd.ErrOrStderr(),
	}

	pkgPath, err := in.Resolve(args[0])
	if err != nil {
		printFailureContext(err, "")
		return err
	}

	meta, err := in.Install(cmd.Context(), pkgPath)
	if err != nil {
		printFailureContext(err, "")
		return err
	}

	fmt.Printf("%s Installed %s into %s\n",
		SuccessStyle.Render("✓"), PathStyle.Render(meta.Id()), PathStyle.Render(cfg.Root))
	return nil
}
