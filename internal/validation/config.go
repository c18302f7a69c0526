package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/filesystem"
	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/pattern"
)

// ValidationError represents a configuration validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationResult holds the results of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []string
}

// AddError adds a validation error
func (vr *ValidationResult) AddError(field string, value interface{}, rule string, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	})
}

// AddWarning adds a validation warning
func (vr *ValidationResult) AddWarning(message string) {
	vr.Warnings = append(vr.Warnings, message)
}

// ConfigValidator validates decoded settings before they reach the pipeline
type ConfigValidator struct{}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateSettings checks every setting. Invalid key patterns are errors
// here even though regeneration only skips them.
func (cv *ConfigValidator) ValidateSettings(s config.Settings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	cv.validatePatterns(s.KeyPatterns, result)
	cv.validateDebounce(s, result)
	cv.validateGrammarPath(s.GrammarPath, result)
	cv.validateBasePath(s.BasePath, result)

	logging.Debug("Settings validation",
		"valid", result.Valid,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))
	return result
}

func (cv *ConfigValidator) validatePatterns(patterns []string, result *ValidationResult) {
	if len(patterns) == 0 {
		result.AddWarning("no key patterns configured, the grammar will not highlight anything")
		return
	}

	compiled := pattern.Compile(patterns)
	for _, pe := range compiled.Errors {
		result.AddError(fmt.Sprintf("%s[%d]", constants.KeyPatternsKey, pe.Index), pe.Pattern, "regex", pe.Err.Error())
	}
	if dropped := len(patterns) - len(compiled.Errors) - len(compiled.Rules); dropped > 0 {
		result.AddWarning(fmt.Sprintf("%d duplicate key pattern(s) will be ignored", dropped))
	}

	for i, raw := range patterns {
		if strings.TrimSpace(raw) != raw {
			result.AddWarning(fmt.Sprintf("%s[%d] %q has surrounding whitespace, it is trimmed", constants.KeyPatternsKey, i, raw))
		}
	}
}

func (cv *ConfigValidator) validateDebounce(s config.Settings, result *ValidationResult) {
	d := s.Debounce
	if d < 0 {
		result.AddError(constants.DebounceKey, d, "non_negative", "debounce window cannot be negative")
		return
	}
	if clamped := constants.ClampDebounce(d); d != 0 && clamped != d {
		result.AddWarning(fmt.Sprintf("debounce %s is outside %s..%s and will be clamped to %s",
			d, constants.MinDebounce, constants.MaxDebounce, clamped))
	}
}

func (cv *ConfigValidator) validateGrammarPath(path string, result *ValidationResult) {
	if strings.TrimSpace(path) == "" {
		result.AddError(constants.GrammarPathKey, path, "required", "grammar output path is required")
		return
	}
	if !filesystem.IsJSONFile(path) {
		result.AddWarning(fmt.Sprintf("grammar path %s does not end in .json, editors load JSON grammars", path))
	}

	// The nearest existing ancestor must be a directory
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				result.AddError(constants.GrammarPathKey, path, "writable", fmt.Sprintf("%s is not a directory", dir))
			}
			return
		}
		if parent := filepath.Dir(dir); parent == dir {
			return
		}
	}
}

func (cv *ConfigValidator) validateBasePath(path string, result *ValidationResult) {
	if path == "" {
		return
	}
	if !filesystem.IsYAMLFile(path) && !filesystem.IsJSONFile(path) {
		result.AddWarning(fmt.Sprintf("base template %s has no .yaml, .yml or .json extension and is read as YAML", path))
	}
	base, err := grammar.LoadBase(path)
	if err == nil {
		err = grammar.CheckBase(base)
	}
	if err != nil {
		result.AddError(constants.BasePathKey, path, "base_template", err.Error())
		return
	}
	if !base.Includes(constants.EmbeddedSQLScope) {
		result.AddWarning(fmt.Sprintf("base template %s never includes %s, values will not be tokenized as SQL",
			path, constants.EmbeddedSQLScope))
	}
}
