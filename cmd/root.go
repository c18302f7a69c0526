package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/resource"
)

var (
	cfgFile  string
	logLevel string

	// Global context and resource management
	contextManager *resource.ContextManager
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yamlsql",
	Short: "Generate TextMate grammars that highlight SQL embedded in YAML",
	Long: `yamlsql builds a TextMate injection grammar from a list of YAML key
patterns. Values of matching keys are tokenized as SQL in editors that load
the grammar.

The pattern list lives under ` + constants.KeyPatternsKey + ` in .yamlsql.yaml
or in the editor settings when running as a sidecar (serve --stdio).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Default to info level if not specified
		if logLevel == "" {
			logLevel = "info"
		}

		// Initialize logging with the specified level
		logging.InitWithLevel(logLevel)

		logging.Debug("Logging initialized", "level", logLevel)
		logging.Debug("Using config file", "path", viper.ConfigFileUsed())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initResourceManagement)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.yamlsql.yaml, then $HOME, then $XDG_CONFIG_HOME/yamlsql)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	// Bind flags to Viper
	viper.BindPFlag(constants.LogLevelKey, rootCmd.PersistentFlags().Lookup("log-level"))
}

// initResourceManagement initializes the global resource management system
func initResourceManagement() {
	if contextManager == nil {
		contextManager = resource.NewContextManager()
		logging.Debug("Resource management initialized")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.Setup(viper.GetViper(), cfgFile)

	if err := config.Read(viper.GetViper()); err != nil {
		// Config file was found but another error occurred
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}

	// Update variables from viper
	// This ensures they reflect values from config file or env vars
	if logLevel == "" {
		logLevel = viper.GetString(constants.LogLevelKey)
	}
}
