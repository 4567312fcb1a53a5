package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/proshot/internal/cli"
	"github.com/fpang/proshot/internal/config"
	"github.com/fpang/proshot/internal/logging"
	"github.com/fpang/proshot/internal/metrics"
	"github.com/fpang/proshot/internal/session"
	"github.com/fpang/proshot/internal/web"
)

// Set at build time via -ldflags.
var (
	commitHash = "unknown"
	buildTime  = "unknown"
)

// CLI flags
var (
	configFlag   string
	portFlag     int
	modelFlag    string
	logFileFlag  string
	validateFlag bool
	pickerFlag   bool
	metricsFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "proshot-web",
	Short: "Web UI for turning selfies into headshots",
	Long: `ProShot Web starts a local web server with the headshot studio: upload a
selfie, pick a style, generate and download the result in your browser.

Examples:
  proshot-web
  proshot-web --port 9090
  proshot-web --picker --validate-key
  proshot-web --config proshot.yaml`,
	Args: cobra.NoArgs,
	Run:  runMain,
}

func init() {
	rootCmd.Flags().StringVar(&configFlag, "config", "", "YAML config file")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config, default 8080)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model to use (overrides config)")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "", "Also write JSON logs to this file")
	rootCmd.Flags().BoolVar(&validateFlag, "validate-key", false, "Validate the API key at startup")
	rootCmd.Flags().BoolVar(&pickerFlag, "picker", false, "Enable the native file dialog for choosing a selfie")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Print EMF metric lines to stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	_ = godotenv.Load()

	cfg, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if logFileFlag != "" {
		cfg.LogFile = logFileFlag
	}

	logCloser := logging.Init(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()

	if !metricsFlag {
		metrics.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := cli.InitGenerator(ctx, cfg, validateFlag)

	store := session.NewStore(gen, cfg.Sessions())
	go store.Run(ctx)
	defer store.Close()

	opts := web.Options{}
	if pickerFlag {
		opts.Picker = web.ZenityPicker{}
	}
	api := web.New(store, opts)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: web.DefaultMaxWait + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.NewStartupLogger("proshot-web").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("port", strconv.Itoa(cfg.Port)).
		Config("model", cfg.Model).
		Config("upload_delay", cfg.UploadDelay.String()).
		Config("generation_timeout", cfg.GenerationTimeout.String()).
		Config("session_ttl", cfg.SessionTTL.String()).
		Feature("picker", pickerFlag).
		Feature("key_validation", validateFlag).
		Feature("metrics", metricsFlag).
		Feature("log_file", cfg.LogFile != "").
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  ProShot: http://localhost:%d\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
