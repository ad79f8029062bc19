package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	driverLogger atomic.Pointer[slog.Logger]
	logLevel     = new(slog.LevelVar)
)

func init() {
	logLevel.Set(slog.LevelWarn)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	driverLogger.Store(slog.New(handler))
}

// Driver returns the driver-wide logger. Connection-scoped loggers are
// derived from it with With("conn", id).
func Driver() *slog.Logger {
	return driverLogger.Load()
}

// SetLogger replaces the driver-wide logger, letting an embedding
// application route driver logs into its own handler.
func SetLogger(l *slog.Logger) {
	if l != nil {
		driverLogger.Store(l)
	}
}

// SetLevel changes the log level of the built-in handler.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLevelFromString sets the log level from a string, case-insensitive.
// Valid values: "debug", "info", "warn", "error". Anything else keeps
// the current level.
func SetLevelFromString(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	}
}

// InitStructured reconfigures the built-in handler.
// format: "text" (default) or "json"
// level: "debug", "info", "warn", "error"
func InitStructured(format, level string) {
	SetLevelFromString(level)

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	driverLogger.Store(slog.New(handler))
}
