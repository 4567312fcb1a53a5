// Package mcpserver exposes headshot generation as Model Context Protocol
// tools so assistants can list styles and generate from a local selfie.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/imagegen"
	"github.com/fpang/proshot/internal/intake"
	"github.com/fpang/proshot/internal/metrics"
	"github.com/fpang/proshot/internal/session"
	"github.com/fpang/proshot/internal/styles"
)

const (
	serverName = "proshot"

	// DefaultToolTimeout bounds one generate_headshot call end to end.
	DefaultToolTimeout = 3 * time.Minute
)

// Options configures the tool handlers.
type Options struct {
	Version  string
	Sessions session.Options
	Timeout  time.Duration
}

// ListStylesInput has no arguments.
type ListStylesInput struct{}

// GenerateInput is the argument object of generate_headshot.
type GenerateInput struct {
	ImagePath string `json:"imagePath" jsonschema:"absolute path of a JPEG, PNG or WebP selfie under 5 MB"`
	StyleID   string `json:"styleId" jsonschema:"style preset id from list_styles"`
	Prompt    string `json:"prompt,omitempty" jsonschema:"description of the look, required when styleId is custom"`
}

type handlers struct {
	gen  imagegen.Generator
	opts Options
}

// New builds an MCP server with the list_styles and generate_headshot tools.
func New(gen imagegen.Generator, opts Options) *mcp.Server {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultToolTimeout
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	h := &handlers{gen: gen, opts: opts}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: opts.Version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_styles",
		Description: "List the headshot style presets with their ids and descriptions.",
	}, h.listStyles)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_headshot",
		Description: "Turn a selfie on disk into a professional headshot in the chosen style. Returns a PNG image.",
	}, h.generateHeadshot)
	return server
}

// Run serves the tools over stdio until ctx is canceled or the client hangs up.
func Run(ctx context.Context, gen imagegen.Generator, opts Options) error {
	log.Info().Str("version", opts.Version).Msg("Starting MCP server on stdio")
	return New(gen, opts).Run(ctx, &mcp.StdioTransport{})
}

func (h *handlers) listStyles(ctx context.Context, req *mcp.CallToolRequest, _ ListStylesInput) (*mcp.CallToolResult, any, error) {
	var b strings.Builder
	for _, s := range styles.List() {
		fmt.Fprintf(&b, "%s: %s. %s\n", s.ID, s.Name, s.Description)
	}
	return textResult(b.String(), false), nil, nil
}

func (h *handlers) generateHeadshot(ctx context.Context, req *mcp.CallToolRequest, in GenerateInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	result, outcome := h.generate(ctx, in)
	metrics.New().
		Dimension("Tool", "generate_headshot").
		Duration("ToolLatencyMs", time.Since(start)).
		Count("ToolCalls").
		Property("outcome", outcome).
		Flush()
	return result, nil, nil
}

func (h *handlers) generate(ctx context.Context, in GenerateInput) (*mcp.CallToolResult, string) {
	style, ok := styles.Lookup(in.StyleID)
	if !ok {
		return textResult(fmt.Sprintf("Unknown style %q. Call list_styles for valid ids.", in.StyleID), true), "bad_style"
	}

	f, closer, err := intake.FromPath(in.ImagePath)
	if err != nil {
		return textResult("Cannot open "+in.ImagePath+".", true), "bad_path"
	}
	defer closer.Close()

	img, err := intake.Validate(f)
	if err != nil {
		var rej *intake.RejectionError
		if errors.As(err, &rej) {
			return textResult(rej.UserMessage(), true), rej.Reason.String()
		}
		return textResult("Cannot read "+in.ImagePath+".", true), "bad_path"
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	m := session.NewMachine(uuid.NewString(), h.gen, h.opts.Sessions)
	defer m.Close()

	s, err := session.Drive(ctx, m, img, style, in.Prompt)
	if err != nil {
		log.Warn().Err(err).Str("style", style.ID).Msg("MCP headshot generation failed")
		return textResult(toolErrorMessage(err, s), true), "failed"
	}

	mediaType, data, err := dataurl.Parse(s.Result)
	if err != nil {
		log.Error().Err(err).Msg("Generated image is not a valid data URL")
		return textResult("Failed to generate image. Please try again.", true), "failed"
	}

	log.Info().Str("style", style.ID).Int("bytes", len(data)).Msg("MCP headshot generated")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Generated a %s headshot.", style.Name)},
			&mcp.ImageContent{Data: data, MIMEType: mediaType},
		},
	}, "success"
}

func toolErrorMessage(err error, s session.Session) string {
	var ge *session.GenerationError
	switch {
	case errors.As(err, &ge) && ge.Message != "":
		return ge.Message
	case session.IsValidation(err) && s.LastError != "":
		return s.LastError
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation timed out. Please try again."
	default:
		return "Failed to generate image. Please try again."
	}
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}
