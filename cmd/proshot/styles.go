package main

import (
	"github.com/spf13/cobra"

	"github.com/fpang/proshot/internal/cli"
	"github.com/fpang/proshot/internal/styles"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the headshot style presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cli.PrintStyles(cmd.OutOrStdout(), styles.List())
	},
}
