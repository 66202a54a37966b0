// Package debug provides the library's logging on top of log/slog.
// Logging is off until Init is called.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	// logger is the global logger instance
	logger *slog.Logger
	// enabled indicates if logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

// Options configure the global logger.
type Options struct {
	// Level is the minimum level written.
	Level slog.Level
	// JSON selects the JSON handler instead of text.
	JSON bool
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

func init() {
	Disable()
}

// Init enables logging with opts.
func Init(opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	mu.Lock()
	defer mu.Unlock()
	enabled = true
	logger = slog.New(handler)
}

// Disable discards all logs.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
	// A level higher than any actual level
	logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Enabled returns whether logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Component returns a logger tagged with the component name. The logger is
// bound to the handler current at the time of the call.
func Component(name string) *slog.Logger {
	return Logger().With("component", name)
}

// Debug logs a debug message
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }

// Info logs an info message
func Info(msg string, args ...any) { Logger().Info(msg, args...) }

// Warn logs a warning message
func Warn(msg string, args ...any) { Logger().Warn(msg, args...) }

// Error logs an error message
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
