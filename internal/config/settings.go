// Package config loads yamlSqlHighlight settings through viper and reports
// which keys changed between snapshots.
package config

import (
	"slices"
	"time"

	"github.com/jeeftor/yamlsql/internal/constants"
)

// Settings is one immutable snapshot of the yamlSqlHighlight namespace
type Settings struct {
	KeyPatterns   []string      `mapstructure:"keyPatterns" json:"keyPatterns" yaml:"keyPatterns"`
	Debounce      time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
	GrammarPath   string        `mapstructure:"grammarPath" json:"grammarPath" yaml:"grammarPath"`
	BasePath      string        `mapstructure:"basePath" json:"basePath,omitempty" yaml:"basePath,omitempty"`
	ReloadCommand string        `mapstructure:"reloadCommand" json:"reloadCommand,omitempty" yaml:"reloadCommand,omitempty"`
}

// DefaultKeyPatterns matches the keys SQL usually lives under
var DefaultKeyPatterns = []string{"sql", "query", ".*_sql", "sql_.*"}

// Defaults returns the settings used when nothing is configured
func Defaults() Settings {
	return Settings{
		KeyPatterns: slices.Clone(DefaultKeyPatterns),
		Debounce:    constants.DefaultDebounce,
		GrammarPath: constants.DefaultGrammarOut,
	}
}

// Clone returns a copy that shares no slices with s
func (s Settings) Clone() Settings {
	s.KeyPatterns = slices.Clone(s.KeyPatterns)
	return s
}

// Diff returns the fully qualified keys whose values differ, in a fixed order
func Diff(prev, next Settings) []string {
	var keys []string
	if !slices.Equal(prev.KeyPatterns, next.KeyPatterns) {
		keys = append(keys, constants.KeyPatternsKey)
	}
	if prev.Debounce != next.Debounce {
		keys = append(keys, constants.DebounceKey)
	}
	if prev.GrammarPath != next.GrammarPath {
		keys = append(keys, constants.GrammarPathKey)
	}
	if prev.BasePath != next.BasePath {
		keys = append(keys, constants.BasePathKey)
	}
	if prev.ReloadCommand != next.ReloadCommand {
		keys = append(keys, constants.ReloadCmdKey)
	}
	return keys
}
