// Package imagegen wraps the single Gemini call that turns a source image and
// an editing instruction into a new image.
package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/metrics"
)

// Generator produces an edited image from a source image and instruction.
type Generator interface {
	Generate(ctx context.Context, source dataurl.Image, instruction string) (dataurl.Image, error)
}

// ContentGenerator is the slice of the genai SDK the client depends on.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config is supplied by the hosting application at startup.
type Config struct {
	// APIKey is the Gemini API key. Never logged.
	APIKey string
	// Model is the image model id. Defaults to DefaultModel.
	Model string
	// BaseURL overrides the Gemini endpoint (tests, proxies).
	BaseURL string
	// Timeout bounds each call. Zero leaves it to the transport.
	Timeout time.Duration
}

// Client calls Gemini once per Generate.
type Client struct {
	models  ContentGenerator
	model   string
	timeout time.Duration
}

var _ Generator = (*Client)(nil)

// NewClient creates a Gemini-backed client from cfg.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewWithModels(client.Models, cfg), nil
}

// NewWithModels builds a Client around an existing ContentGenerator.
func NewWithModels(models ContentGenerator, cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		models:  models,
		model:   model,
		timeout: cfg.Timeout,
	}
}

// Models returns the underlying content generator, for key validation.
func (c *Client) Models() ContentGenerator {
	return c.models
}

// Model returns the configured model id.
func (c *Client) Model() string {
	return c.model
}

// Generate sends source and instruction to the model as one user turn and
// returns the first inline image in the response, tagged as PNG.
func (c *Client) Generate(ctx context.Context, source dataurl.Image, instruction string) (dataurl.Image, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", ErrEmptyInstruction
	}

	contents, mediaType, err := buildContents(source, instruction)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log.Info().
		Str("model", c.model).
		Str("image_mime", mediaType).
		Int("instruction_length", len(instruction)).
		Msg("Sending image to Gemini for editing")

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	elapsed := time.Since(start)

	if err != nil {
		kind := Classify(err)
		log.Error().
			Err(err).
			Str("kind", kind.String()).
			Dur("duration", elapsed).
			Msg("Gemini image editing request failed")
		record(kind.String(), mediaType, elapsed)
		return "", &TransportError{Kind: kind, Err: err}
	}

	data, text := firstInlineImage(resp)
	if data == nil {
		log.Warn().
			Str("text", truncateString(text, 200)).
			Dur("duration", elapsed).
			Msg("Gemini response contained no image")
		record("no_image", mediaType, elapsed)
		return "", ErrNoImageInResponse
	}

	log.Info().
		Int("output_bytes", len(data)).
		Dur("duration", elapsed).
		Msg("Gemini image editing complete")
	record("success", mediaType, elapsed)

	// The model's output format is fixed; always tag as PNG.
	return dataurl.Encode(dataurl.MediaTypePNG, data), nil
}

// buildContents turns the encoded source into the request payload: the
// image part first, then the instruction.
func buildContents(source dataurl.Image, instruction string) ([]*genai.Content, string, error) {
	mediaType := dataurl.MediaType(source)
	raw, err := sourceBytes(source)
	if err != nil {
		return nil, "", err
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mediaType, Data: raw}},
		genai.NewPartFromText(instruction),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, mediaType, nil
}

// sourceBytes accepts any well-formed data URL, falling back to a bare
// base64 payload with a recognised prefix stripped.
func sourceBytes(source dataurl.Image) ([]byte, error) {
	if _, data, err := dataurl.Parse(source); err == nil {
		return data, nil
	}
	raw, err := base64.StdEncoding.DecodeString(dataurl.Payload(source))
	if err != nil {
		return nil, fmt.Errorf("source image is not valid base64: %w", err)
	}
	return raw, nil
}

// firstInlineImage scans candidates and parts in order. It also collects any
// text so an empty result can be explained in logs.
func firstInlineImage(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil {
		return nil, ""
	}
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, text.String()
			}
			text.WriteString(part.Text)
		}
	}
	return nil, text.String()
}

func record(result, mediaType string, elapsed time.Duration) {
	metrics.New().
		Dimension("Result", result).
		Duration("GenerationLatencyMs", elapsed).
		Count("GenerationResult").
		Property("inputMime", mediaType).
		Flush()
}

// truncateString truncates s to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
