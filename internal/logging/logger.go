// Package logging provides the structured, context-aware logger used across
// schaltwerk's core. It mirrors the teacher's context-key-extraction design
// but targets a long-running daemon rather than a one-shot CLI invocation:
// logs are written to a single rotating file under the app-data logs
// directory instead of one file per session.
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/paths"
	"github.com/schaltwerk/schaltwerk/redact"
)

// LogLevelEnvVar controls the minimum log level written.
const LogLevelEnvVar = "SCHALTWERK_LOG_LEVEL"

var (
	mu           sync.RWMutex
	logger       *slog.Logger
	logFile      *os.File
	logBufWriter *bufio.Writer
)

// Init opens the daemon's log file (LogsDir()/schaltwerkd-<date>.log) and
// installs it as the package logger. Falls back to stderr on any failure so
// logging never blocks startup.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	level := parseLogLevel(os.Getenv(LogLevelEnvVar))

	dir, err := paths.LogsDir()
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	name := fmt.Sprintf("schaltwerkd-%s.log", time.Now().UTC().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	return nil
}

// Close flushes and closes the current log file. Safe to call multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at DEBUG with context values extracted automatically.
func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }

// Info logs at INFO with context values extracted automatically.
func Info(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelInfo, msg, attrs...) }

// Warn logs at WARN with context values extracted automatically.
func Warn(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelWarn, msg, attrs...) }

// Error logs at ERROR with context values extracted automatically.
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

// LogDuration logs msg with a duration_ms attribute computed from start.
// Intended for use with defer:
//
//	defer logging.LogDuration(ctx, slog.LevelDebug, "worktree created", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	all := append([]any{slog.Int64("duration_ms", time.Since(start).Milliseconds())}, attrs...)
	log(ctx, level, msg, all...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()

	var all []any
	if s := SessionFromContext(ctx); s != "" {
		all = append(all, slog.String("session", s))
	}
	if r := RepositoryFromContext(ctx); r != "" {
		all = append(all, slog.String("repository", r))
	}
	if c := ComponentFromContext(ctx); c != "" {
		all = append(all, slog.String("component", c))
	}
	if a := AgentFromContext(ctx); a != "" {
		all = append(all, slog.String("agent", a))
	}
	all = append(all, redactValues(attrs)...)

	l.Log(nil, level, msg, all...) //nolint:staticcheck // context values already extracted as attrs
}

// redactValues scrubs string and error values in a key/value attr list
// before they reach the log file, since callers sometimes log raw command
// output or environment-derived strings that may contain secrets.
func redactValues(attrs []any) []any {
	out := make([]any, len(attrs))
	copy(out, attrs)
	for i := 1; i < len(out); i += 2 {
		switch v := out[i].(type) {
		case string:
			out[i] = redact.String(v)
		case error:
			out[i] = fmt.Errorf("%s", redact.String(v.Error()))
		}
	}
	return out
}
