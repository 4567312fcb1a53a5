package main

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/proshot/internal/config"
	"github.com/fpang/proshot/internal/logging"
	"github.com/fpang/proshot/internal/metrics"
)

// Set at build time via -ldflags.
var (
	version    = "dev"
	commitHash = "unknown"
)

// Persistent flags
var (
	configFlag  string
	modelFlag   string
	logFileFlag string
	verboseFlag bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "proshot",
	Short: "Turn a selfie into a professional headshot",
	Long: `ProShot sends a casual selfie to Gemini together with a style preset and
saves the generated headshot as a PNG.

Examples:
  proshot styles
  proshot generate --image selfie.jpg --style corporate
  proshot generate --pick --style custom --prompt "Navy blazer, soft window light"
  proshot mcp   # serve the tools to an MCP client over stdio`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model to use (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(stylesCmd, generateCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	cfg       config.Config
	logCloser io.Closer
)

// setup loads .env, the config file and the logger before any subcommand.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	loaded, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if modelFlag != "" {
		loaded.Model = modelFlag
	}
	if logFileFlag != "" {
		loaded.LogFile = logFileFlag
	}
	if verboseFlag {
		loaded.LogLevel = "debug"
	}
	cfg = loaded

	// stdout carries command output and the MCP stream.
	metrics.SetOutput(io.Discard)

	logCloser = logging.Init(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	cobra.OnFinalize(func() { logCloser.Close() })

	log.Debug().
		Str("version", version).
		Str("commit", commitHash).
		Str("model", cfg.Model).
		Msg("ProShot CLI starting")
	return nil
}
