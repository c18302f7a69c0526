package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/logging"
)

// ConfigName is the config file name without extension
const ConfigName = ".yamlsql"

// SearchPaths returns the directories searched for the config file, in order
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	return append(paths, filepath.Join(xdg.ConfigHome, "yamlsql"))
}

// SetDefaults registers the default value of every known key
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(constants.KeyPatternsKey, d.KeyPatterns)
	v.SetDefault(constants.DebounceKey, d.Debounce.String())
	v.SetDefault(constants.GrammarPathKey, d.GrammarPath)
	v.SetDefault(constants.BasePathKey, "")
	v.SetDefault(constants.ReloadCmdKey, "")
	v.SetDefault(constants.LogLevelKey, "info")
}

// Setup wires env binding (YAMLSQL_*), defaults and the config file
// location into v. An explicit cfgFile disables the search path.
func Setup(v *viper.Viper, cfgFile string) {
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return
	}
	for _, p := range SearchPaths() {
		v.AddConfigPath(p)
	}
	v.SetConfigType("yaml")
	v.SetConfigName(ConfigName)
}

// Read loads the config file. A missing file is not an error.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logging.Debug("No config file found, using defaults and environment")
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	logging.Debug("Loaded config file", "path", v.ConfigFileUsed())
	return nil
}

// Decode builds a Settings snapshot from the current viper state
func Decode(v *viper.Viper) (Settings, error) {
	patterns, err := stringList(v.Get(constants.KeyPatternsKey))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", constants.KeyPatternsKey, err)
	}
	debounce, err := duration(v.Get(constants.DebounceKey))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", constants.DebounceKey, err)
	}

	return Settings{
		KeyPatterns:   patterns,
		Debounce:      debounce,
		GrammarPath:   v.GetString(constants.GrammarPathKey),
		BasePath:      v.GetString(constants.BasePathKey),
		ReloadCommand: v.GetString(constants.ReloadCmdKey),
	}, nil
}

func stringList(raw any) ([]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), val...), nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("entry %d is %T, want string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return envList(val), nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", raw)
	}
}

// envList reads a list from an environment value. A YAML flow sequence
// (["query", "sql_\\d{1,3}"]) gives several patterns; anything else is one
// pattern. Patterns may contain commas, so the value is never split on them.
func envList(val string) []string {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	if strings.HasPrefix(val, "[") {
		var list []string
		if err := yaml.Unmarshal([]byte(val), &list); err == nil {
			return list
		}
	}
	return []string{val}
}

// duration accepts Go duration strings ("750ms") and bare numbers, which are
// milliseconds as in editor settings.
func duration(raw any) (time.Duration, error) {
	switch val := raw.(type) {
	case nil:
		return constants.DefaultDebounce, nil
	case time.Duration:
		return val, nil
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	case float64:
		return time.Duration(val * float64(time.Millisecond)), nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", val, err)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("expected a duration, got %T", raw)
	}
}

// Store holds the current Settings snapshot and refreshes it from viper.
// Snapshot is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	v       *viper.Viper
	current Settings
}

// NewStore decodes the initial snapshot from v
func NewStore(v *viper.Viper) (*Store, error) {
	s, err := Decode(v)
	if err != nil {
		return nil, err
	}
	return &Store{v: v, current: s}, nil
}

// Snapshot returns a copy of the current settings
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Viper exposes the underlying viper instance
func (s *Store) Viper() *viper.Viper {
	return s.v
}

// Reload re-decodes viper state and returns the keys that changed. On a
// decode error the previous snapshot is kept.
func (s *Store) Reload() ([]string, error) {
	next, err := Decode(s.v)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	keys := Diff(s.current, next)
	s.current = next
	return keys, nil
}

// Apply overlays settings pushed by the host. The payload is either the
// namespace object itself or an object containing it.
func (s *Store) Apply(payload map[string]any) ([]string, error) {
	section := payload
	if nested, ok := payload[constants.Namespace].(map[string]any); ok {
		section = nested
	}

	fields := map[string]string{
		"keyPatterns":   constants.KeyPatternsKey,
		"debounce":      constants.DebounceKey,
		"grammarPath":   constants.GrammarPathKey,
		"basePath":      constants.BasePathKey,
		"reloadCommand": constants.ReloadCmdKey,
	}
	updates := make(map[string]any, len(fields))
	for field, key := range fields {
		val, ok := section[field]
		if !ok {
			continue
		}
		if err := checkValue(key, val); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		updates[key] = val
	}

	// Only validated values reach viper, so a rejected payload leaves no residue
	for key, val := range updates {
		s.v.Set(key, val)
	}
	return s.Reload()
}

func checkValue(key string, val any) error {
	var err error
	switch key {
	case constants.KeyPatternsKey:
		_, err = stringList(val)
	case constants.DebounceKey:
		_, err = duration(val)
	}
	return err
}

// Watch reloads the snapshot whenever the config file is written and calls
// fn with the changed keys. It returns false when no config file is in use.
func (s *Store) Watch(fn func(keys []string)) bool {
	if s.v.ConfigFileUsed() == "" {
		return false
	}

	s.v.OnConfigChange(func(e fsnotify.Event) {
		if !relevantEvent(e) {
			return
		}
		logging.Debug("Config file event", "file", e.Name, "op", e.Op.String())

		keys, err := s.Reload()
		if err != nil {
			logging.Warn("Ignoring invalid configuration", "file", e.Name, "error", err)
			return
		}
		if len(keys) > 0 {
			fn(keys)
		}
	})
	s.v.WatchConfig()
	return true
}

func relevantEvent(e fsnotify.Event) bool {
	return e.Has(fsnotify.Write) || e.Has(fsnotify.Create)
}
