// Package logging wraps a global zerolog logger for the API and the CLI tools.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("server starting")
//	logging.Ctx(ctx).Warn().Err(err).Msg("image cleanup failed")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level and output format. An empty Level means info,
// a nil Output means stderr and Format "console" switches to human-readable lines.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

var (
	mu     sync.RWMutex
	global zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	global = build(Config{})
}

// Init replaces the global logger. cmd/* call it once config is loaded.
func Init(cfg Config) {
	logger := build(cfg)
	mu.Lock()
	global = logger
	mu.Unlock()
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
}

// parseLevel accepts zerolog's level names plus "warning". Anything
// unrecognised is info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zerolog.WarnLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Debug() *zerolog.Event {
	l := current()
	return l.Debug()
}

func Info() *zerolog.Event {
	l := current()
	return l.Info()
}

func Warn() *zerolog.Event {
	l := current()
	return l.Warn()
}

func Error() *zerolog.Event {
	l := current()
	return l.Error()
}

// Fatal exits the process after the event is written.
func Fatal() *zerolog.Event {
	l := current()
	return l.Fatal()
}
