// Package logging configures the global zerolog logger shared by every
// ProShot binary.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EnvLogLevel selects the level when Options.Level is empty.
const EnvLogLevel = "GEMINI_LOG_LEVEL"

// Rotation settings for Options.File.
const (
	fileMaxSizeMB  = 50
	fileMaxBackups = 5
	fileMaxAgeDays = 14
)

// Options controls Init.
type Options struct {
	// Level is debug, info, warn, or error. Empty falls back to
	// GEMINI_LOG_LEVEL, then info.
	Level string
	// File, when set, receives a JSON copy of every event with size-based
	// rotation.
	File string
	// JSON writes structured events to stderr instead of the console format.
	// Lambda binaries set this so CloudWatch can parse the lines.
	JSON bool
}

// Init configures the global logger. The returned Closer flushes and closes
// the log file, if any; it is safe to call on a nil-file setup.
func Init(opts Options) io.Closer {
	level := opts.Level
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	zerolog.SetGlobalLevel(ParseLevel(level))

	var stderr io.Writer = os.Stderr
	if !opts.JSON {
		stderr = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	var file *lumberjack.Logger
	out := stderr
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(stderr, file)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer{file}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type closer struct {
	file *lumberjack.Logger
}

func (c closer) Close() error {
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}
