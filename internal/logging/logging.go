// Package logging wraps zerolog with a mutex-guarded log-level variable,
// independent of zerolog's own global level, so the level can be read and
// changed at runtime (tests included) without a data race.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is a log level name: the lowercase form of one of the names
// YUREI_LOG_LEVEL accepts.
type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zerolog() zerolog.Level {
	switch strings.ToLower(string(l)) {
	case string(LevelTrace):
		return zerolog.TraceLevel
	case string(LevelDebug):
		return zerolog.DebugLevel
	case string(LevelWarn):
		return zerolog.WarnLevel
	case string(LevelError):
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var (
	levelMu      sync.RWMutex
	currentLevel = LevelInfo
)

// SetLevel updates the guarded level and zerolog's global level together.
func SetLevel(l Level) {
	levelMu.Lock()
	currentLevel = l
	levelMu.Unlock()
	zerolog.SetGlobalLevel(l.zerolog())
}

// CurrentLevel reads the guarded level.
func CurrentLevel() Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// New builds the process logger. color enables an ANSI ConsoleWriter
// instead of the default JSON output (YUREI_LOG_COLOR).
func New(level Level, color bool) zerolog.Logger {
	SetLevel(level)

	var out io.Writer = os.Stdout
	if color {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339, NoColor: false}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", "geyser-ingestor").
		Logger()
}

// Component returns a child logger tagged with a component name, matching
// the convention every worker in this repository uses for its own logger.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
