// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the logging configuration.
type Config struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	JSONFormat bool   `mapstructure:"json_format"`
}

// Setup rebuilds the global logger: human-readable console output on
// stderr, plus an optional log file in either JSON or the same console
// format.
func Setup(cfg Config) {
	out := io.Writer(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.File).Msg("Cannot open log file")
		}
		fileOut := io.Writer(f)
		if !cfg.JSONFormat {
			fileOut = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true}
		}
		out = zerolog.MultiLevelWriter(out, fileOut)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	SetLevel(cfg.Level)
}

// SetLevel sets the global logging level, defaulting to info on empty or
// unknown levels.
func SetLevel(level string) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Msgf("Unknown log level '%s', defaulting to 'info'", level)
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
