package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fpang/proshot/internal/cli"
	"github.com/fpang/proshot/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve list_styles and generate_headshot to an MCP client over stdio",
	Long: `Mcp runs a Model Context Protocol server on stdin/stdout. Logs go to
stderr so they never corrupt the protocol stream.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gen := cli.InitGenerator(ctx, cfg, false)
		return mcpserver.Run(ctx, gen, mcpserver.Options{
			Version:  version,
			Sessions: cfg.Sessions(),
		})
	},
}
