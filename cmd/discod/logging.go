package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/lumivpn/discovery/internal/config"
)

// newLogger builds the process logger from config. Console format is
// meant for a terminal; json for log collectors.
func newLogger(cfg config.Log) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return log.Level(level).With().Timestamp().Logger()
}
