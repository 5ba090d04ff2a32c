package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a case-insensitive level name. ok is false for unknown names.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// Logger is a leveled printf-style logger rendered through slog.
//
// Instances are cheap to derive with With and safe for concurrent use.
// Components that need logging take a *Logger at construction; the
// package-level functions write to the process default.
type Logger struct {
	level *slog.LevelVar
	sl    *slog.Logger
}

// New creates a Logger writing to w. format is "text" or "json".
func New(w io.Writer, level Level, format string) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level.slog())

	opts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{level: lv, sl: slog.New(h)}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError, "text")
}

// With returns a Logger that attaches the given key/value pairs to every record.
// The derived logger shares its level with the parent.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{level: l.level, sl: l.sl.With(args...)}
}

// SetLevel changes the minimum level. Unknown names are ignored.
func (l *Logger) SetLevel(level string) {
	if lv, ok := ParseLevel(level); ok {
		l.level.Set(lv.slog())
	}
}

// Enabled reports whether records at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return l.sl.Enabled(context.Background(), level.slog())
}

func (l *Logger) log(level Level, format string, v ...any) {
	if !l.Enabled(level) {
		return
	}
	l.sl.Log(context.Background(), level.slog(), fmt.Sprintf(format, v...))
}

func (l *Logger) Debug(format string, v ...any) { l.log(LevelDebug, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.log(LevelInfo, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.log(LevelWarn, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.log(LevelError, format, v...) }

var std atomic.Pointer[Logger]

func init() {
	std.Store(New(os.Stdout, LevelInfo, "text"))
}

// Default returns the process-wide logger.
func Default() *Logger {
	return std.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}

// Configure builds the process-wide logger from logging settings.
//
// output is "stdout", "stderr" or a file path (opened for append). The
// returned closer releases the file and is a no-op for the standard streams.
func Configure(level, format, output string) (io.Closer, error) {
	lv, ok := ParseLevel(level)
	if !ok {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch strings.ToLower(output) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	SetDefault(New(w, lv, format))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func SetLevel(level string) {
	Default().SetLevel(level)
}

func Debug(format string, v ...any) {
	Default().log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	Default().log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	Default().log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	Default().log(LevelError, format, v...)
}
