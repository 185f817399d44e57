// file: internal/logging/slog.go
package logging

import (
	"context"
	"log/slog"
	"os"
)

// slogLogger backs Logger with the standard library's structured logger.
// It is the concrete default: the interface exists so callers never import
// log/slog directly, but somewhere has to.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps h in the Logger interface. A nil handler defaults to a
// text handler writing to stderr at Info level.
func NewSlogLogger(h slog.Handler) Logger {
	if h == nil {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &slogLogger{l: slog.New(h)}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) WithContext(ctx context.Context) Logger {
	// slog handlers that care about context values (trace ids, etc.) receive
	// it at call sites via LogAttrs; this wrapper exists so callers always
	// have a context-aware hook without every call site needing *slog.Logger.
	return s
}

func (s *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{l: s.l.With(key, value)}
}
