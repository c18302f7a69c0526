package logging

import "fmt"

// LogTemplate represents a logging template with standardized emoji and formatting
type LogTemplate struct {
	emoji  string
	prefix string
	level  LogLevel
}

// LogLevel represents the logging level for templates
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelSuccess
	LevelWarn
	LevelError
	LevelDebug
)

// Common logging templates with standardized emojis and formats
var (
	ActivateTemplate   = LogTemplate{emoji: "🚀", prefix: "", level: LevelInfo}
	DeactivateTemplate = LogTemplate{emoji: "🛑", prefix: "", level: LevelInfo}

	ChangeTemplate     = LogTemplate{emoji: "👁️", prefix: "Configuration changed", level: LevelDebug}
	RegenerateTemplate = LogTemplate{emoji: "🎨", prefix: "Regenerating grammar", level: LevelInfo}
	PatternTemplate    = LogTemplate{emoji: "⚠️", prefix: "Skipping key pattern", level: LevelWarn}

	SaveTemplate      = LogTemplate{emoji: "💾", prefix: "Saved", level: LevelSuccess}
	UnchangedTemplate = LogTemplate{emoji: "✓", prefix: "Grammar unchanged", level: LevelInfo}
	HotSwapTemplate   = LogTemplate{emoji: "🔄", prefix: "Hot-swapped", level: LevelSuccess}
	RestartTemplate   = LogTemplate{emoji: "🔁", prefix: "Reload required", level: LevelWarn}
	FailTemplate      = LogTemplate{emoji: "❌", prefix: "Failed", level: LevelError}
)

// Format formats the template with the provided message
func (t LogTemplate) Format(message string) string {
	if t.prefix != "" {
		return fmt.Sprintf("%s %s: %s", t.emoji, t.prefix, message)
	}
	return fmt.Sprintf("%s %s", t.emoji, message)
}

// Formatf formats the template with printf-style formatting
func (t LogTemplate) Formatf(format string, args ...interface{}) string {
	return t.Format(fmt.Sprintf(format, args...))
}

// Log logs the message using the appropriate logging function based on level
func (t LogTemplate) Log(message string) {
	formatted := t.Format(message)
	switch t.level {
	case LevelInfo:
		UserInfof("%s", formatted)
	case LevelSuccess:
		Successf("%s", formatted)
	case LevelWarn:
		UserWarnf("%s", formatted)
	case LevelError:
		UserErrorf("%s", formatted)
	case LevelDebug:
		Debug(formatted)
	}
}

// Logf logs the message using printf-style formatting
func (t LogTemplate) Logf(format string, args ...interface{}) {
	t.Log(fmt.Sprintf(format, args...))
}

// Activated logs extension activation
func Activated(name string) {
	ActivateTemplate.Logf("%s is now active", name)
}

// Deactivated logs extension deactivation
func Deactivated(name string) {
	DeactivateTemplate.Logf("%s is now deactivated", name)
}

// ConfigChanged logs a relevant configuration change
func ConfigChanged(keys []string) {
	ChangeTemplate.Logf("%v", keys)
}

// Regenerating logs the start of a regeneration cycle
func Regenerating(patternCount int) {
	RegenerateTemplate.Logf("%d key pattern(s)", patternCount)
}

// SkippedPattern logs a key pattern that failed to compile
func SkippedPattern(index int, pattern string, reason string) {
	PatternTemplate.Logf("#%d %q: %s", index, pattern, reason)
}

// SaveFile logs file save operation
func SaveFile(path string, details string) {
	if details != "" {
		SaveTemplate.Logf("%s (%s)", path, details)
	} else {
		SaveTemplate.Log(path)
	}
}

// Unchanged logs a regeneration that produced identical output
func Unchanged(path string) {
	UnchangedTemplate.Log(path)
}

// HotSwapped logs a grammar applied without restart
func HotSwapped(scope string) {
	HotSwapTemplate.Log(scope)
}

// RestartRequired logs that the host has to reload
func RestartRequired(reason string) {
	RestartTemplate.Log(reason)
}

// Fail logs operation failure
func Fail(operation string, reason string) {
	if reason != "" {
		FailTemplate.Logf("%s: %s", operation, reason)
	} else {
		FailTemplate.Log(operation)
	}
}
