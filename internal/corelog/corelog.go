// Package corelog provides the runtime's structured logging, built on
// stdlib log/slog the way current rclone's fs/log package layers
// custom severities on top of slog's four standard levels.
package corelog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Custom levels, defined as offsets from the standard ones exactly the
// way fs.SlogLevelNotice/SlogLevelCritical/SlogLevelAlert/
// SlogLevelEmergency are in rclone's fs package: between Info and Warn,
// and above Error, respectively.
const (
	LevelNotice    = slog.LevelInfo + 2
	LevelCritical  = slog.LevelError + 4
	LevelAlert     = slog.LevelError + 8
	LevelEmergency = slog.LevelError + 12
)

// levelNames maps a level to its display name for levels slog itself
// doesn't know how to render.
var levelNames = map[slog.Level]string{
	LevelNotice:    "NOTICE",
	LevelCritical:  "CRITICAL",
	LevelAlert:     "ALERT",
	LevelEmergency: "EMERGENCY",
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	if name, ok := levelNames[level]; ok {
		a.Value = slog.StringValue(name)
	}
	return a
}

// New builds a text-handler logger writing to w, enabled at minLevel
// and above, with custom-level names rendered the way
// fs/log.slogLevelToString does for its own custom levels.
func New(w io.Writer, minLevel slog.Level) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       minLevel,
		ReplaceAttr: replaceLevel,
	})
	return slog.New(h)
}

var defaultLogger = New(os.Stderr, slog.LevelInfo)

// Default returns the package's default logger.
func Default() *slog.Logger { return defaultLogger }

// SetDefault replaces the package's default logger.
func SetDefault(l *slog.Logger) { defaultLogger = l }

// Debug, Info, Notice, Warn, Error, Critical log at their respective
// levels on the default logger. The runtime uses them for its
// init/teardown transitions and comrtctl for command failures; the
// library manager, activator and registry do not log.
func Debug(ctx context.Context, msg string, args ...any) {
	defaultLogger.Log(ctx, slog.LevelDebug, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	defaultLogger.Log(ctx, slog.LevelInfo, msg, args...)
}

func Notice(ctx context.Context, msg string, args ...any) {
	defaultLogger.Log(ctx, LevelNotice, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	defaultLogger.Log(ctx, slog.LevelWarn, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	defaultLogger.Log(ctx, slog.LevelError, msg, args...)
}

func Critical(ctx context.Context, msg string, args ...any) {
	defaultLogger.Log(ctx, LevelCritical, msg, args...)
}
