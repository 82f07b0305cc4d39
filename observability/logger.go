// Package observability
// Author: momentics <momentics@gmail.com>
//
// zerolog setup with optional rotating file output.

package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/momentics/grainws/control"
)

// InitLogger builds the process logger from cfg, installs it as log.Logger
// and returns it with a closer for the log file (a no-op without one).
func InitLogger(app string, cfg control.LogConfig) (zerolog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}
	var file io.Writer
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    max(cfg.MaxSizeMB, 1),
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		file, closer = lj, lj
	}
	logger := newLogger(os.Stderr, file, app, cfg)
	ApplyLevel(cfg.Level)
	log.Logger = logger
	return logger, closer, nil
}

func newLogger(console, file io.Writer, app string, cfg control.LogConfig) zerolog.Logger {
	var out io.Writer = console
	if strings.ToLower(cfg.Format) != "json" {
		out = zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
		}
	}
	if file != nil {
		// File output stays JSON.
		out = zerolog.MultiLevelWriter(out, file)
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Str("app", app).Logger()
}

// ParseLevel maps a config level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ApplyLevel sets the global minimum level, used on config reload.
func ApplyLevel(s string) {
	zerolog.SetGlobalLevel(ParseLevel(s))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
