// Package main runs the ProShot API behind API Gateway (HTTP API, payload v2).
//
// Sessions live in the container's memory, so the function should run with
// reserved concurrency 1 to keep every request of a session on one instance.
// The generate endpoint holds the response open until the result is applied
// because the runtime is frozen between invocations.
//
// Container: Light
// Memory: 512 MB
// Timeout: 60 seconds (API Gateway caps at 30)
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/config"
	"github.com/fpang/proshot/internal/imagegen"
	"github.com/fpang/proshot/internal/lambdaboot"
	"github.com/fpang/proshot/internal/logging"
	"github.com/fpang/proshot/internal/session"
	"github.com/fpang/proshot/internal/web"
)

// lambdaMaxWait keeps long polls and awaited generations under the 30 second
// API Gateway integration timeout.
const lambdaMaxWait = 25 * time.Second

// Set at build time via -ldflags.
var commitHash = "unknown"

var handler *httpadapter.HandlerAdapterV2

func init() {
	initStart := time.Now()
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("PROSHOT_CONFIG"))
	if err != nil {
		logging.Init(logging.Options{JSON: true})
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(logging.Options{Level: cfg.LogLevel, JSON: true})

	aws, err := lambdaboot.InitAWS(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	apiKey, err := lambdaboot.LoadGeminiKey(ctx, aws.SSM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load Gemini API key")
	}

	gen, err := imagegen.NewClient(ctx, cfg.ImageGen(apiKey))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	// API Gateway fails the request past 30s, so the model call must finish first.
	if cfg.GenerationTimeout > lambdaMaxWait {
		log.Warn().
			Dur("configured", cfg.GenerationTimeout).
			Dur("max", lambdaMaxWait).
			Msg("Generation timeout exceeds the API Gateway limit; results may arrive after the request times out")
	}

	store := session.NewStore(gen, cfg.Sessions())
	go store.Run(ctx)

	api := web.New(store, web.Options{
		MaxWait:         lambdaMaxWait,
		AwaitGeneration: true,
	})
	handler = httpadapter.NewV2(api.Handler())

	lambdaboot.StartupLog("proshot-lambda", initStart).
		CommitHash(commitHash).
		SSMParam("geminiApiKey", lambdaboot.GeminiKeyParam()).
		Config("model", cfg.Model).
		Config("generation_timeout", cfg.GenerationTimeout.String()).
		Config("session_ttl", cfg.SessionTTL.String()).
		Feature("await_generation", true).
		Log()
}

func main() {
	lambda.Start(handler.ProxyWithContext)
}
