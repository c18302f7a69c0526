package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jeeftor/yamlsql/internal/host"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/reload"
	"github.com/jeeftor/yamlsql/internal/session"
	"github.com/jeeftor/yamlsql/internal/utils"
)

var watchSkipInitial bool

// watchCmd keeps the grammar in sync with the config file
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the grammar whenever the configuration changes",
	Long: `Write the grammar, then watch the config file and regenerate after edits.

Bursts of edits are coalesced: regeneration runs once the configured debounce
window has passed without another change. When the set of generated scopes
changes, you are asked whether to reload; "Reload Now" runs
yamlSqlHighlight.reloadCommand when one is configured.

Scope names are derived from each pattern's letters and digits. Editing a
pattern so that part stays the same (sql_.* to sql_.+) is applied in place.
Any other edit, such as renaming query to queries, changes the scopes
and needs a reload.

Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSettings(cmd)
		if err != nil {
			utils.ValidationError(err)
		}

		term := host.NewTerminal(store.Snapshot().ReloadCommand)
		ctx := contextManager.GetContext()

		sess, err := session.Init(ctx, session.Options{
			Source:      store,
			Host:        term,
			SkipInitial: watchSkipInitial,
			OnCycle: func(r session.Report) {
				// Runs on the session loop, the only caller of term.Reload
				term.ReloadCommand = store.Snapshot().ReloadCommand
				logCycle(r)
			},
		})
		if err != nil {
			return err
		}
		contextManager.AddCleanupFunc("session", func() error {
			sess.Teardown()
			return nil
		})

		watching := store.Watch(func(keys []string) {
			sess.Notify(keys)
		})
		if watching {
			logging.UserInfof("Watching %s (Ctrl+C to stop)", store.Viper().ConfigFileUsed())
		} else {
			logging.UserWarnf("No config file in use, nothing to watch. Create one with 'yamlsql config init'")
		}

		select {
		case <-ctx.Done():
		case <-sess.Done():
		}
		return contextManager.Shutdown()
	},
}

func logCycle(r session.Report) {
	if r.Err != nil {
		logging.Debug("Regeneration failed", "error", r.Err)
		return
	}
	if r.Outcome == reload.OutcomeRestartRequired {
		logging.Debug("Grammar requires a reload", "rules", r.Rules)
	}
}

func init() {
	addGrammarFlags(watchCmd)
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not regenerate on start")
	rootCmd.AddCommand(watchCmd)
}
