// Package log wraps log/slog with component tagging, request logging and an
// adapter for validation diagnostics.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"paycheck-tracker/internal/validate"
)

// Logger is a slog.Logger that knows which component it logs for.
type Logger struct {
	*slog.Logger
	component string
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
}

// DefaultConfig logs at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// New creates a text logger from config.
func New(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: config.Level})
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		component: component,
	}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		component: ComponentApp,
	}
}

// ParseLevel maps LOG_LEVEL values (debug, info, warn, error) to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// With returns a logger with extra attributes and the same component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithComponent returns a logger tagged with another component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(FieldComponent, component), component: component}
}

// WithFields returns a logger carrying f.
func (l *Logger) WithFields(f Fields) *Logger {
	return l.With(f.Args()...)
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault makes l the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

type contextKey struct{}

// NewContext returns ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the request logger, or one built on slog.Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// ValidationHook reports every field check at debug level. Failures carry
// the error.
func ValidationHook(l *Logger) validate.Hook {
	vl := l.WithComponent(ComponentValidate)
	return func(field string, input any, err error) {
		if err != nil {
			vl.Debug("field rejected", FieldField, field, FieldInput, input, FieldError, err)
			return
		}
		vl.Debug("field accepted", FieldField, field, FieldInput, input)
	}
}
