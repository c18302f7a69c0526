package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/embedded"
)

func TestValidateDefaults(t *testing.T) {
	result := NewConfigValidator().ValidateSettings(config.Defaults())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateSettings(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	corrupt := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(corrupt, []byte("scopeName: x\n"), 0644))

	tests := []struct {
		name     string
		mutate   func(*config.Settings)
		field    string
		warnings int
	}{
		{
			name:   "invalid pattern",
			mutate: func(s *config.Settings) { s.KeyPatterns = []string{"sql", "(bad"} },
			field:  constants.KeyPatternsKey + "[1]",
		},
		{
			name:   "negative debounce",
			mutate: func(s *config.Settings) { s.Debounce = -time.Second },
			field:  constants.DebounceKey,
		},
		{
			name:   "missing grammar path",
			mutate: func(s *config.Settings) { s.GrammarPath = " " },
			field:  constants.GrammarPathKey,
		},
		{
			name:   "grammar path under a file",
			mutate: func(s *config.Settings) { s.GrammarPath = filepath.Join(file, "g.json") },
			field:  constants.GrammarPathKey,
		},
		{
			name:   "missing base",
			mutate: func(s *config.Settings) { s.BasePath = filepath.Join(dir, "missing.yaml") },
			field:  constants.BasePathKey,
		},
		{
			name:   "base without sql rule",
			mutate: func(s *config.Settings) { s.BasePath = corrupt },
			field:  constants.BasePathKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.Defaults()
			s.GrammarPath = filepath.Join(dir, "out", "g.json")
			tt.mutate(&s)

			result := NewConfigValidator().ValidateSettings(s)
			assert.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.field, result.Errors[0].Field)
			assert.Contains(t, result.Errors[0].Error(), tt.field)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	s := config.Defaults()
	s.KeyPatterns = []string{"sql", "^sql$", " query "}
	s.Debounce = time.Millisecond
	s.GrammarPath = filepath.Join(t.TempDir(), "grammar.yaml")

	result := NewConfigValidator().ValidateSettings(s)
	assert.True(t, result.Valid)
	assert.Len(t, result.Warnings, 4)

	s.KeyPatterns = nil
	result = NewConfigValidator().ValidateSettings(s)
	assert.Contains(t, result.Warnings[0], "no key patterns")
}

func TestValidateBaseExtension(t *testing.T) {
	data, err := embedded.BaseGrammar()
	require.NoError(t, err)

	dir := t.TempDir()
	s := config.Defaults()
	s.GrammarPath = filepath.Join(dir, "grammar.json")

	s.BasePath = filepath.Join(dir, "base.yml")
	require.NoError(t, os.WriteFile(s.BasePath, data, 0644))
	result := NewConfigValidator().ValidateSettings(s)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)

	s.BasePath = filepath.Join(dir, "base.tmpl")
	require.NoError(t, os.WriteFile(s.BasePath, data, 0644))
	result = NewConfigValidator().ValidateSettings(s)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "read as YAML")

	s.BasePath = filepath.Join(dir, "nosql.yaml")
	require.NoError(t, os.WriteFile(s.BasePath, []byte(strings.ReplaceAll(string(data), "source.sql", "source.plsql")), 0644))
	result = NewConfigValidator().ValidateSettings(s)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "never includes source.sql")
}
