package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeftor/yamlsql/internal/constants"
)

func newViper(t *testing.T, content string) *viper.Viper {
	t.Helper()
	v := viper.New()
	path := ""
	if content != "" {
		path = filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	Setup(v, path)
	if path != "" {
		require.NoError(t, Read(v))
	}
	return v
}

func TestDecodeDefaults(t *testing.T) {
	s, err := Decode(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestDecodeFromFile(t *testing.T) {
	v := newViper(t, `
yamlSqlHighlight:
  keyPatterns: ["query", "sql_.*"]
  debounce: 750ms
  grammarPath: out/grammar.json
`)

	s, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"query", "sql_.*"}, s.KeyPatterns)
	assert.Equal(t, 750*time.Millisecond, s.Debounce)
	assert.Equal(t, "out/grammar.json", s.GrammarPath)
	assert.Empty(t, s.BasePath)
}

func TestDecodeNumericDebounceIsMilliseconds(t *testing.T) {
	v := newViper(t, "yamlSqlHighlight:\n  debounce: 250\n")
	s, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, s.Debounce)
}

func TestDecodeRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
	}{
		{"patterns not a list", "yamlSqlHighlight:\n  keyPatterns: {a: b}\n", constants.KeyPatternsKey},
		{"pattern not a string", "yamlSqlHighlight:\n  keyPatterns: [1]\n", constants.KeyPatternsKey},
		{"bad duration", "yamlSqlHighlight:\n  debounce: soon\n", constants.DebounceKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(newViper(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"flow list", `["query", "stmt_.*"]`, []string{"query", "stmt_.*"}},
		{"quantifier in list", `["query", "sql_\\d{1,3}"]`, []string{"query", `sql_\d{1,3}`}},
		{"single pattern with comma", `sql_\d{1,3}`, []string{`sql_\d{1,3}`}},
		{"character class", "[a-z]+_sql", []string{"[a-z]+_sql"}},
		{"blank", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("YAMLSQL_YAMLSQLHIGHLIGHT_KEYPATTERNS", tt.value)

			s, err := Decode(newViper(t, ""))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.KeyPatterns)
		})
	}
}

func TestDiff(t *testing.T) {
	a := Defaults()
	b := a.Clone()
	assert.Empty(t, Diff(a, b))

	b.KeyPatterns = append(b.KeyPatterns, "extra")
	b.Debounce = time.Second
	assert.Equal(t, []string{constants.KeyPatternsKey, constants.DebounceKey}, Diff(a, b))
}

func TestSnapshotIsACopy(t *testing.T) {
	store, err := NewStore(newViper(t, ""))
	require.NoError(t, err)

	snap := store.Snapshot()
	snap.KeyPatterns[0] = "mutated"

	assert.Equal(t, DefaultKeyPatterns[0], store.Snapshot().KeyPatterns[0])
}

func TestApply(t *testing.T) {
	store, err := NewStore(newViper(t, ""))
	require.NoError(t, err)

	keys, err := store.Apply(map[string]any{
		"yamlSqlHighlight": map[string]any{
			"keyPatterns": []any{"query"},
			"debounce":    float64(100),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.KeyPatternsKey, constants.DebounceKey}, keys)
	assert.Equal(t, []string{"query"}, store.Snapshot().KeyPatterns)
	assert.Equal(t, 100*time.Millisecond, store.Snapshot().Debounce)

	keys, err = store.Apply(map[string]any{"keyPatterns": []any{"query"}})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestApplyKeepsSnapshotOnError(t *testing.T) {
	store, err := NewStore(newViper(t, ""))
	require.NoError(t, err)

	_, err = store.Apply(map[string]any{"keyPatterns": 42})
	require.Error(t, err)
	assert.Equal(t, DefaultKeyPatterns, store.Snapshot().KeyPatterns)

	// The rejected value must not linger and fail the next payload
	keys, err := store.Apply(map[string]any{"debounce": float64(200)})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.DebounceKey}, keys)
	assert.Equal(t, DefaultKeyPatterns, store.Snapshot().KeyPatterns)
	assert.Equal(t, 200*time.Millisecond, store.Snapshot().Debounce)

	_, err = store.Apply(map[string]any{"keyPatterns": []any{"query"}, "debounce": "soon"})
	require.Error(t, err)
	assert.Equal(t, DefaultKeyPatterns, store.Snapshot().KeyPatterns, "valid fields of a rejected payload are not applied")
}

func TestReloadAfterFileEdit(t *testing.T) {
	v := newViper(t, "yamlSqlHighlight:\n  keyPatterns: [query]\n")
	store, err := NewStore(v)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(v.ConfigFileUsed(), []byte("yamlSqlHighlight:\n  keyPatterns: [query, stmt]\n"), 0644))
	require.NoError(t, v.ReadInConfig())

	keys, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{constants.KeyPatternsKey}, keys)
	assert.Equal(t, []string{"query", "stmt"}, store.Snapshot().KeyPatterns)
}

func TestWatchWithoutConfigFile(t *testing.T) {
	store, err := NewStore(newViper(t, ""))
	require.NoError(t, err)
	assert.False(t, store.Watch(func([]string) {}))
}

func TestRelevantEvent(t *testing.T) {
	assert.True(t, relevantEvent(fsnotify.Event{Name: "a", Op: fsnotify.Write}))
	assert.True(t, relevantEvent(fsnotify.Event{Name: "a", Op: fsnotify.Create}))
	assert.False(t, relevantEvent(fsnotify.Event{Name: "a", Op: fsnotify.Chmod}))
	assert.False(t, relevantEvent(fsnotify.Event{Name: "a", Op: fsnotify.Remove}))
}

func TestSampleConfigDecodes(t *testing.T) {
	v := newViper(t, SampleConfig)
	s, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}
