package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/proshot/internal/cli"
	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/intake"
	"github.com/fpang/proshot/internal/session"
	"github.com/fpang/proshot/internal/styles"
	"github.com/fpang/proshot/internal/web"
)

// generate flags
var (
	imageFlag    string
	pickFlag     bool
	styleFlag    string
	promptFlag   string
	outFlag      string
	validateFlag bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a headshot from a selfie",
	Long: `Generate reads a selfie, applies the chosen style and writes the result
to the output directory as proshot-headshot-<millis>.png.

With --style custom and no --prompt, the description is read from stdin.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&imageFlag, "image", "i", "", "Path to the selfie (JPEG, PNG or WebP, under 5 MB)")
	f.BoolVar(&pickFlag, "pick", false, "Choose the selfie with the native file dialog")
	f.StringVarP(&styleFlag, "style", "s", "", "Style preset id (see 'proshot styles')")
	f.StringVarP(&promptFlag, "prompt", "p", "", "Style description for --style custom")
	f.StringVarP(&outFlag, "out", "o", "", "Output directory (default: current directory)")
	f.BoolVar(&validateFlag, "validate-key", false, "Check the API key before uploading")
	generateCmd.MarkFlagsMutuallyExclusive("image", "pick")
	generateCmd.MarkFlagsOneRequired("image", "pick")
	generateCmd.MarkFlagRequired("style")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	style, ok := styles.Lookup(styleFlag)
	if !ok {
		return fmt.Errorf("unknown style %q; run 'proshot styles' for the list", styleFlag)
	}
	outDir, err := cli.ResolveOutputDir(outFlag)
	if err != nil {
		return err
	}

	path, err := selfiePath(ctx)
	if err != nil {
		return err
	}
	img, err := readSelfie(path)
	if err != nil {
		return err
	}

	instruction := promptFlag
	if style.IsCustom() && strings.TrimSpace(instruction) == "" {
		instruction = cli.PromptForInstruction(os.Stdin, cmd.ErrOrStderr())
	}

	gen := cli.InitGenerator(ctx, cfg, validateFlag)
	m := session.NewMachine(uuid.NewString(), gen, cfg.Sessions())
	defer m.Close()

	start := time.Now()
	log.Info().Str("style", style.ID).Str("image", path).Msg("Generating headshot")
	s, err := session.Drive(ctx, m, img, style, instruction)
	if err != nil {
		var ge *session.GenerationError
		switch {
		case errors.As(err, &ge):
			return errors.New(ge.Message)
		case session.IsValidation(err) && s.LastError != "":
			return errors.New(s.LastError)
		}
		return err
	}

	_, data, err := dataurl.Parse(s.Result)
	if err != nil {
		return fmt.Errorf("generated image is unreadable: %w", err)
	}
	out := filepath.Join(outDir, web.DownloadFilename(time.Now()))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to save headshot: %w", err)
	}

	cli.PrintSuccess(cmd.OutOrStdout(), out, time.Since(start))
	return nil
}

func selfiePath(ctx context.Context) (string, error) {
	if !pickFlag {
		return imageFlag, nil
	}
	path, err := web.ZenityPicker{}.PickImage(ctx)
	if errors.Is(err, web.ErrPickCanceled) {
		return "", errors.New("no file selected")
	}
	return path, err
}

func readSelfie(path string) (dataurl.Image, error) {
	f, closer, err := intake.FromPath(path)
	if err != nil {
		return "", err
	}
	defer closer.Close()

	img, err := intake.Validate(f)
	var rej *intake.RejectionError
	if errors.As(err, &rej) {
		return "", errors.New(rej.UserMessage())
	}
	return img, err
}
