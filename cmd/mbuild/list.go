// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/registry"
)

// listCmd enumerates installed packages.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Args:  cobra.NoArgs,
	RunE:  runListCmd,
}

// infoCmd shows the stored metadata and manifest of one installed package.
var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show metadata and manifest of an installed package",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfoCmd,
}

func runListCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	metas, err := registry.New(cfg.Layout().State()).List()
	if err != nil {
		return err
	}

	if len(metas) == 0 {
		fmt.Println(SubtitleStyle.Render("no packages installed"))
		return nil
	}
	for _, m := range metas {
		fmt.Println(m.Id())
	}
	return nil
}

func runInfoCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	reg := registry.New(cfg.Layout().State())
	name := args[0]

	meta, err := reg.Meta(name)
	if err != nil {
		printFailureContext(err, "")
		return err
	}
	manifest, err := reg.Manifest(name)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render(meta.Id()) + SubtitleStyle.Render(" ("+meta.Arch+", prefix "+meta.Prefix+")"))
	fmt.Println(strings.TrimRight(strings.Join(manifest, "\n"), "\n"))
	return nil
}
