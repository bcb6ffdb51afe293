// Package logging wraps a global zerolog logger with slog-style helpers.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the logging verbosity level
type Level int

const (
	// LevelNormal shows INFO and above (default)
	LevelNormal Level = 0
	// LevelVerbose shows DEBUG and above (-v)
	LevelVerbose Level = 1
	// LevelTrace shows DEBUG and above plus HTTP headers (-vv)
	LevelTrace Level = 2
)

// Format selects the log line encoding
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseFormat accepts "console" or "json"; empty means console
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format %q", s)
	}
}

var currentLevel Level

// Logger is the global zerolog logger instance. The zero value discards
// everything, which keeps package tests quiet.
var Logger zerolog.Logger

// Setup initializes zerolog with a console writer to stderr.
// The level parameter controls verbosity:
//   - 0: INFO and above (default)
//   - 1: DEBUG and above (-v)
//   - 2+: DEBUG and above with HTTP headers (-vv)
func Setup(level Level) {
	SetupWithWriter(os.Stderr, level, FormatConsole)
}

// SetupWithWriter is Setup with an explicit destination and encoding.
// stdout stays reserved for the MCP stdio transport, so callers pass stderr
// or a file.
func SetupWithWriter(w io.Writer, level Level, format Format) {
	currentLevel = level

	zerologLevel := zerolog.InfoLevel
	if level >= LevelVerbose {
		zerologLevel = zerolog.DebugLevel
	}

	out := w
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	Logger = zerolog.New(out).
		Level(zerologLevel).
		With().
		Timestamp().
		Logger()
}

// GetLevel returns the current logging level
func GetLevel() Level {
	return currentLevel
}

// IsVerbose returns true if verbose/debug logging is enabled
func IsVerbose() bool {
	return currentLevel >= LevelVerbose
}

// IsTraceEnabled returns true if trace-level logging (HTTP headers) is enabled
func IsTraceEnabled() bool {
	return currentLevel >= LevelTrace
}

// maxJSONLen bounds ToJSON output so large payloads stay readable in logs
const maxJSONLen = 2000

// ToJSON renders v for debug logging, truncated to maxJSONLen bytes
func ToJSON(v any) string {
	b, err := json.Marshal(v)
	switch {
	case err != nil:
		return "<marshal error>"
	case len(b) > maxJSONLen:
		return string(b[:maxJSONLen]) + "...(truncated)"
	}
	return string(b)
}

// emit writes one entry with alternating key-value fields
func emit(level zerolog.Level, msg string, keysAndValues []any) {
	Logger.WithLevel(level).Fields(keysAndValues).Msg(msg)
}

// LeveledLogger adapts the global logger to retryablehttp.LeveledLogger
type LeveledLogger struct{}

func (l *LeveledLogger) Error(msg string, keysAndValues ...any) {
	emit(zerolog.ErrorLevel, msg, keysAndValues)
}

func (l *LeveledLogger) Info(msg string, keysAndValues ...any) {
	emit(zerolog.InfoLevel, msg, keysAndValues)
}

// Debug is demoted further: retryablehttp logs every request at debug
func (l *LeveledLogger) Debug(msg string, keysAndValues ...any) {
	if IsTraceEnabled() {
		emit(zerolog.DebugLevel, msg, keysAndValues)
	}
}

func (l *LeveledLogger) Warn(msg string, keysAndValues ...any) {
	emit(zerolog.WarnLevel, msg, keysAndValues)
}

// Info, Debug, Warn and Error take slog-style key-value pairs

func Info(msg string, keysAndValues ...any)  { emit(zerolog.InfoLevel, msg, keysAndValues) }
func Debug(msg string, keysAndValues ...any) { emit(zerolog.DebugLevel, msg, keysAndValues) }
func Warn(msg string, keysAndValues ...any)  { emit(zerolog.WarnLevel, msg, keysAndValues) }
func Error(msg string, keysAndValues ...any) { emit(zerolog.ErrorLevel, msg, keysAndValues) }
