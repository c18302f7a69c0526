package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
)

// Flags shared by the commands that build a grammar
const (
	flagPattern = "pattern"
	flagOutput  = "output"
	flagBase    = "base"
)

func addGrammarFlags(cmd *cobra.Command) {
	addPatternFlag(cmd)
	cmd.Flags().StringP(flagOutput, "o", "", "grammar output path (default from "+constants.GrammarPathKey+")")
	cmd.Flags().String(flagBase, "", "base grammar template, YAML or JSON (default: embedded)")
}

// addPatternFlag registers -p. Each occurrence is one pattern taken verbatim,
// since patterns may contain commas.
func addPatternFlag(cmd *cobra.Command) {
	cmd.Flags().StringArrayP(flagPattern, "p", nil, "key pattern (repeatable, replaces the configured list)")
}

// loadSettings applies the grammar flags that were set on top of viper and
// returns a store holding the effective settings
func loadSettings(cmd *cobra.Command) (*config.Store, error) {
	return settingsFrom(cmd, viper.GetViper())
}

func settingsFrom(cmd *cobra.Command, v *viper.Viper) (*config.Store, error) {
	if f := cmd.Flags().Lookup(flagPattern); f != nil && f.Changed {
		patterns, err := cmd.Flags().GetStringArray(flagPattern)
		if err != nil {
			return nil, err
		}
		v.Set(constants.KeyPatternsKey, patterns)
	}

	overrides := map[string]string{
		flagOutput: constants.GrammarPathKey,
		flagBase:   constants.BasePathKey,
	}
	for flag, key := range overrides {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	return config.NewStore(v)
}

// terminalWidth returns the stdout width, or fallback when it is not a terminal
func terminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
