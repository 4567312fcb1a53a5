package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/auth"
)

// ResolveOutputDir checks that dirPath exists and is a directory, then returns
// its absolute path. An empty dirPath means the current directory.
func ResolveOutputDir(dirPath string) (string, error) {
	if dirPath == "" {
		dirPath = "."
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("output directory not found: %s", dirPath)
		}
		return "", fmt.Errorf("failed to access output directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output path is not a directory: %s", dirPath)
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}

	return dirPath, nil
}

// HandleValidationError processes key lookup and validation failures and exits
// with appropriate messaging.
func HandleValidationError(err error) {
	if errors.Is(err, auth.ErrNoAPIKey) {
		log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY or store a GPG-encrypted key in ~/.proshot/credentials.gpg")
	}

	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Type {
		case auth.ErrTypeInvalidKey:
			log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
		case auth.ErrTypeNetworkError:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		case auth.ErrTypeQuotaExceeded:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		default:
			log.Fatal().Err(err).Msg("API key validation failed")
		}
	} else {
		log.Fatal().Err(err).Msg("unexpected error during API key validation")
	}
	os.Exit(1)
}
