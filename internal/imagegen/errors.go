package imagegen

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrNoImageInResponse means the model answered but returned no inline image.
	ErrNoImageInResponse = errors.New("no image data found in response")

	// ErrEmptyInstruction is returned when Generate is called without an instruction.
	ErrEmptyInstruction = errors.New("instruction is empty")
)

// Kind categorizes a transport failure.
type Kind int

const (
	// KindUnknown is any failure that matched no other pattern.
	KindUnknown Kind = iota
	// KindInvalidKey means the API key is invalid, revoked, or lacks permission.
	KindInvalidKey
	// KindQuota means the request was rate limited or the quota is exhausted.
	KindQuota
	// KindNetwork means the service could not be reached.
	KindNetwork
	// KindServer means Gemini returned a 5xx.
	KindServer
	// KindRejected means the request itself was refused (bad input, safety).
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindInvalidKey:
		return "invalid_key"
	case KindQuota:
		return "quota"
	case KindNetwork:
		return "network_error"
	case KindServer:
		return "server_error"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// TransportError wraps any failure of the external call itself.
type TransportError struct {
	Kind Kind
	Err  error
}

func (e *TransportError) Error() string {
	return "gemini request failed (" + e.Kind.String() + "): " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify maps an SDK error to a Kind, preferring the structured API error
// code and falling back to message patterns.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyCode(apiErrPtr.Code)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "api_key_invalid") ||
		strings.Contains(errLower, "permission denied"):
		return KindInvalidKey
	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "rate limit"):
		return KindQuota
	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "deadline exceeded") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		return KindNetwork
	default:
		return KindUnknown
	}
}

func classifyCode(code int) Kind {
	switch {
	case code == 401 || code == 403:
		return KindInvalidKey
	case code == 429:
		return KindQuota
	case code >= 500:
		return KindServer
	case code == 400:
		return KindRejected
	default:
		return KindUnknown
	}
}

// UserMessage converts a generation error into the text shown to the user.
// Internal details never leak; only quota and key problems get a hint.
func UserMessage(err error) string {
	const generic = "Failed to generate image. Please try again."

	var te *TransportError
	if errors.As(err, &te) {
		switch te.Kind {
		case KindQuota:
			return "The image service is busy right now. Please wait a moment and try again."
		case KindInvalidKey:
			return "The image service is not configured correctly. Please contact support."
		}
	}
	return generic
}
