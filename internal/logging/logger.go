package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	// Current minimum level
	level = slog.LevelInfo

	// Default logger instance
	logger *slog.Logger

	// Destination for user-facing output (stdout unless redirected for RPC mode)
	userOut io.Writer = os.Stdout

	mu sync.Mutex

	// Colors for different log levels
	infoColor    = color.New(color.FgGreen).SprintFunc()
	warnColor    = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	debugColor   = color.New(color.FgCyan).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// ColorTextHandler is a simple handler that adds colors to log output
type ColorTextHandler struct {
	w     io.Writer
	attrs []slog.Attr
}

// NewColorTextHandler creates a new ColorTextHandler
func NewColorTextHandler(w io.Writer) *ColorTextHandler {
	return &ColorTextHandler{w: w}
}

// Handle handles the log record
func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	var levelText string
	switch r.Level {
	case slog.LevelDebug:
		levelText = debugColor("DEBUG")
	case slog.LevelInfo:
		levelText = infoColor("INFO")
	case slog.LevelWarn:
		levelText = warnColor("WARN")
	case slog.LevelError:
		levelText = errorColor("ERROR")
	default:
		levelText = r.Level.String()
	}

	var b strings.Builder
	for _, a := range h.attrs {
		b.WriteString(" " + a.Key + "=" + formatAttrValue(a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "source" {
			return true
		}
		b.WriteString(" " + a.Key + "=" + formatAttrValue(a.Value))
		return true
	})

	mu.Lock()
	defer mu.Unlock()
	_, err := fmt.Fprintf(h.w, "%s %s%s\n", levelText, r.Message, b.String())
	return err
}

// formatAttrValue formats a slog.Value as a string
func formatAttrValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindFloat64:
		return fmt.Sprintf("%f", v.Float64())
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format("15:04:05")
	case slog.KindAny:
		return fmt.Sprintf("%v", v.Any())
	default:
		return v.String()
	}
}

// WithAttrs returns a new handler with the given attributes
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &ColorTextHandler{w: h.w, attrs: merged}
}

// WithGroup returns a new handler with the given group
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	return h
}

// Enabled reports whether the handler handles records at the given level
func (h *ColorTextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= level
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitWithLevel initializes the logger writing to stderr at the named level
func InitWithLevel(name string) {
	level = ParseLevel(name)
	SetOutput(os.Stderr)
	Debug("Debug logging enabled")
}

// SetOutput sets the output writer for the logger
func SetOutput(w io.Writer) {
	logger = slog.New(NewColorTextHandler(w))
	slog.SetDefault(logger)
}

// SetUserOutput redirects user-facing messages. RPC mode sends them to stderr
// so stdout stays reserved for protocol frames.
func SetUserOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	userOut = w
}

// IsDebug reports whether debug output is enabled
func IsDebug() bool {
	return level <= slog.LevelDebug
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

func userPrintf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(userOut, format+"\n", args...)
}

// UserInfo prints a plain message for the user
func UserInfo(msg string) {
	userPrintf("%s", msg)
}

// UserInfof prints a formatted message for the user
func UserInfof(format string, args ...any) {
	userPrintf(format, args...)
}

// UserWarnf prints a formatted warning for the user
func UserWarnf(format string, args ...any) {
	userPrintf("%s", warnColor(fmt.Sprintf(format, args...)))
}

// UserErrorf prints a formatted error for the user
func UserErrorf(format string, args ...any) {
	userPrintf("%s", errorColor(fmt.Sprintf(format, args...)))
}

// Successf prints a formatted success message for the user
func Successf(format string, args ...any) {
	userPrintf("%s", successColor(fmt.Sprintf(format, args...)))
}

// LogOperation runs fn and logs its duration and outcome
func LogOperation(operation, target string, fn func() error) error {
	start := time.Now()
	Debug("Operation started", "operation", operation, "target", target)

	err := fn()
	if err != nil {
		Debug("Operation failed",
			"operation", operation,
			"target", target,
			"duration", time.Since(start),
			"error", err)
		return err
	}

	Debug("Operation completed",
		"operation", operation,
		"target", target,
		"duration", time.Since(start))
	return nil
}
