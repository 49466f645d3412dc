// Package logger wraps a package-level slog.Logger, grounded on the example
// pack's own choice of stdlib structured logging over a third-party
// logging library (see DESIGN.md).
package logger

import (
	"log/slog"
	"os"
)

var Log *slog.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Init sets the global logger's level. Valid levels: debug, info, warn,
// error; anything else falls back to info.
func Init(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(Log)
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
