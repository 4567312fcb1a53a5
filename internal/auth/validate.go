package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/proshot/internal/imagegen"
	"github.com/fpang/proshot/internal/metrics"
)

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey ValidationErrorType = iota
	// ErrTypeNetworkError indicates the API could not be reached.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeUnknown indicates any other failure.
	ErrTypeUnknown
)

func (t ValidationErrorType) String() string {
	switch t {
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	default:
		return "unknown"
	}
}

// ValidationError represents a specific type of API key validation failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateAPIKey makes one minimal text request to confirm the key works.
// It returns nil on success or a *ValidationError.
func ValidateAPIKey(ctx context.Context, models imagegen.ContentGenerator) error {
	log.Debug().Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := models.GenerateContent(ctx, imagegen.ModelGemini3FlashPreview, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	if err != nil {
		valErr := classifyError(err)
		recordValidation(valErr.Type.String(), elapsed)
		log.Error().Err(err).Str("result", valErr.Type.String()).Msg(valErr.Message)
		return valErr
	}

	if resp == nil || len(resp.Candidates) == 0 {
		recordValidation("empty_response", elapsed)
		log.Warn().Msg("API key validation returned empty response")
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "API returned empty response",
		}
	}

	recordValidation("success", elapsed)
	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}

func classifyError(err error) *ValidationError {
	switch imagegen.Classify(err) {
	case imagegen.KindInvalidKey, imagegen.KindRejected:
		return &ValidationError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid, expired, or lacks permissions",
			Err:     err,
		}
	case imagegen.KindQuota:
		return &ValidationError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API rate limit exceeded - try again later",
			Err:     err,
		}
	case imagegen.KindNetwork, imagegen.KindServer:
		return &ValidationError{
			Type:    ErrTypeNetworkError,
			Message: "Could not reach the Gemini API - check your connection",
			Err:     err,
		}
	default:
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "Failed to validate API key",
			Err:     err,
		}
	}
}

func recordValidation(result string, elapsed time.Duration) {
	metrics.New().
		Dimension("Result", result).
		Duration("ApiKeyValidationMs", elapsed).
		Count("ApiKeyValidationResult").
		Flush()
}
