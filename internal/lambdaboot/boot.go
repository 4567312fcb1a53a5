// Package lambdaboot holds the cold-start steps of proshot-lambda: AWS config,
// the Gemini key from SSM Parameter Store, and the startup summary.
package lambdaboot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/auth"
	"github.com/fpang/proshot/internal/logging"
)

const (
	// EnvGeminiKeyParam overrides the SSM parameter holding the Gemini key.
	EnvGeminiKeyParam = "SSM_GEMINI_API_KEY_PARAM"
	// DefaultGeminiKeyParam is the SecureString parameter read by default.
	DefaultGeminiKeyParam = "/proshot/prod/gemini-api-key"
)

// ParameterGetter is the part of the SSM client used here. *ssm.Client
// satisfies it.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSClients holds the AWS SDK clients used at cold start.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and builds the SSM client.
func InitAWS(ctx context.Context) (AWSClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWSClients{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}, nil
}

// GeminiKeyParam returns the SSM parameter name for the Gemini key.
func GeminiKeyParam() string {
	return logging.EnvOrDefault(EnvGeminiKeyParam, DefaultGeminiKeyParam)
}

// LoadGeminiKey returns GEMINI_API_KEY when set, otherwise the decrypted
// value of the SSM parameter named by GeminiKeyParam.
func LoadGeminiKey(ctx context.Context, getter ParameterGetter) (string, error) {
	if key := strings.TrimSpace(os.Getenv(auth.EnvAPIKey)); key != "" {
		log.Debug().Str("source", "env").Msg("Using Gemini API key")
		return key, nil
	}

	param := GeminiKeyParam()
	start := time.Now()
	out, err := getter.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s from SSM: %w", param, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("SSM parameter " + param + " has no value")
	}

	key := strings.TrimSpace(aws.ToString(out.Parameter.Value))
	if key == "" {
		return "", errors.New("SSM parameter " + param + " is empty")
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return key, nil
}

// StartupLog starts a startup summary with the elapsed init time filled in.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
