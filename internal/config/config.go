// Package config resolves runtime settings for the ProShot binaries.
//
// Precedence, lowest first: built-in defaults, an optional YAML file,
// environment variables (including any loaded from .env by main), then
// command-line flags applied by the caller. The Gemini API key is never part
// of Config; see package auth and lambdaboot.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fpang/proshot/internal/imagegen"
	"github.com/fpang/proshot/internal/session"
)

// Environment variables read by Load.
const (
	EnvPort              = "PROSHOT_PORT"
	EnvModel             = "GEMINI_MODEL"
	EnvBaseURL           = "GEMINI_BASE_URL"
	EnvLogLevel          = "GEMINI_LOG_LEVEL"
	EnvLogFile           = "PROSHOT_LOG_FILE"
	EnvUploadDelay       = "PROSHOT_UPLOAD_DELAY"
	EnvGenerationTimeout = "PROSHOT_GENERATION_TIMEOUT"
	EnvSessionTTL        = "PROSHOT_SESSION_TTL"
)

// DefaultGenerationTimeout bounds a single Gemini call.
const DefaultGenerationTimeout = 120 * time.Second

// Config holds every non-secret setting.
type Config struct {
	Port              int           `yaml:"port"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	LogLevel          string        `yaml:"log_level"`
	LogFile           string        `yaml:"log_file"`
	UploadDelay       time.Duration `yaml:"upload_delay"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:              8080,
		Model:             imagegen.DefaultModel,
		LogLevel:          "info",
		UploadDelay:       session.DefaultUploadDelay,
		GenerationTimeout: DefaultGenerationTimeout,
		SessionTTL:        session.DefaultTTL,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error
	if cfg.Port, err = getEnvInt(EnvPort, cfg.Port); err != nil {
		return err
	}
	cfg.Model = getEnv(EnvModel, cfg.Model)
	cfg.BaseURL = getEnv(EnvBaseURL, cfg.BaseURL)
	cfg.LogLevel = strings.ToLower(getEnv(EnvLogLevel, cfg.LogLevel))
	cfg.LogFile = getEnv(EnvLogFile, cfg.LogFile)
	if cfg.UploadDelay, err = getEnvDuration(EnvUploadDelay, cfg.UploadDelay); err != nil {
		return err
	}
	if cfg.GenerationTimeout, err = getEnvDuration(EnvGenerationTimeout, cfg.GenerationTimeout); err != nil {
		return err
	}
	if cfg.SessionTTL, err = getEnvDuration(EnvSessionTTL, cfg.SessionTTL); err != nil {
		return err
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", c.LogLevel)
	}
	if c.UploadDelay < 0 || c.GenerationTimeout < 0 || c.SessionTTL < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// ImageGen returns the generation client settings for apiKey.
func (c Config) ImageGen(apiKey string) imagegen.Config {
	return imagegen.Config{
		APIKey:  apiKey,
		Model:   c.Model,
		BaseURL: c.BaseURL,
		Timeout: c.GenerationTimeout,
	}
}

// Sessions returns the session store settings.
func (c Config) Sessions() session.Options {
	return session.Options{
		UploadDelay: c.UploadDelay,
		TTL:         c.SessionTTL,
	}
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

// getEnvDuration accepts Go duration strings ("500ms", "2m") or a bare
// number of seconds.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
