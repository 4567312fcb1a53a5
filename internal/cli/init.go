package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/auth"
	"github.com/fpang/proshot/internal/config"
	"github.com/fpang/proshot/internal/imagegen"
)

// InitGenerator loads the API key, creates the Gemini client and, when
// validate is set, confirms the key works. Exits fatally on failure.
func InitGenerator(ctx context.Context, cfg config.Config, validate bool) *imagegen.Client {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		HandleValidationError(err)
	}

	client, err := imagegen.NewClient(ctx, cfg.ImageGen(apiKey))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}
	log.Info().Str("model", client.Model()).Msg("Gemini client initialized")

	if validate {
		if err := auth.ValidateAPIKey(ctx, client.Models()); err != nil {
			HandleValidationError(err)
		}
		log.Info().Msg("API key validation complete")
	}

	return client
}
