package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/embedded"
	"github.com/jeeftor/yamlsql/internal/filesystem"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/styles"
	"github.com/jeeftor/yamlsql/internal/utils"
	"github.com/jeeftor/yamlsql/internal/validation"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage yamlsql configuration files and settings",
	Long: `Manage the configuration read by every yamlsql command.

Configuration files are searched in this order:
1. ./.yamlsql.yaml (project config)
2. ~/.yamlsql.yaml (user config)
3. $XDG_CONFIG_HOME/yamlsql/.yamlsql.yaml

Environment variables (YAMLSQL_*) override config file values.
Command-line flags override both config files and environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// configInitCmd creates a sample configuration file
var configInitCmd = &cobra.Command{
	Use:   "init [config-file]",
	Short: "Create a sample configuration file",
	Long: `Write a commented sample configuration with the default key patterns.

Examples:
  yamlsql config init                 # Create ./.yamlsql.yaml
  yamlsql config init ~/.yamlsql.yaml # Create a user config`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath := config.ConfigName + ".yaml"
		if len(args) > 0 {
			configPath = args[0]
		}

		absPath, err := filesystem.GetAbsolutePath(configPath)
		utils.CheckErrorWithCode(err, "Could not resolve config path", utils.ExitCodeFileSystem)

		if _, err := os.Stat(absPath); err == nil {
			logging.UserErrorf("Configuration file already exists: %s", absPath)
			logging.UserInfof("Use 'yamlsql config validate %s' to check the existing file", absPath)
			os.Exit(int(utils.ExitCodeValidation))
		}

		err = os.WriteFile(absPath, []byte(config.SampleConfig), 0644)
		utils.CheckErrorWithCode(err, "Failed to write configuration file", utils.ExitCodeFileSystem)

		logging.Successf("Created configuration file: %s", absPath)
		logging.UserInfof("Use 'yamlsql config validate %s' to check the configuration", absPath)
	},
}

// configValidateCmd validates a configuration file
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate a configuration file",
	Long: `Decode and validate a configuration file, or the active configuration.

Checks that every key pattern compiles, the debounce window is sane, the
grammar output path is writable and the base template override is usable.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := viper.GetViper()
		source := v.ConfigFileUsed()
		if len(args) > 0 {
			source = args[0]
			v = viper.New()
			config.Setup(v, source)
			err := v.ReadInConfig()
			utils.CheckErrorWithCode(err, "Failed to read configuration file", utils.ExitCodeValidation)
		}
		if source == "" {
			source = "defaults and environment"
		}

		settings, err := config.Decode(v)
		utils.CheckErrorWithCode(err, "Configuration validation failed", utils.ExitCodeValidation)

		result := validation.NewConfigValidator().ValidateSettings(settings)
		printValidation(source, result)
		if !result.Valid {
			os.Exit(int(utils.ExitCodeValidation))
		}
	},
}

// configShowCmd displays current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration values and sources",
	Run: func(cmd *cobra.Command, args []string) {
		displayCurrentConfiguration()
	},
}

// configBaseCmd writes the embedded base template for customisation
var configBaseCmd = &cobra.Command{
	Use:   "base [dir]",
	Short: "Write the built-in base grammar template for customisation",
	Long: `Copy the embedded base grammar template into dir (default: current
directory). Edit it and point ` + constants.BasePathKey + ` or --base at the file
to change the rules every generated grammar starts from.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		absDir, err := filesystem.GetAbsolutePath(dir)
		utils.CheckErrorWithCode(err, "Could not resolve directory", utils.ExitCodeFileSystem)

		path, err := embedded.ExtractBaseGrammar(absDir)
		utils.CheckErrorWithCode(err, "Failed to write base template", utils.ExitCodeFileSystem)

		logging.Successf("Wrote base template: %s", path)
		printHint(cmd, "yamlsql generate --base "+path)
	},
}

// configPathCmd shows configuration file search paths
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file search paths",
	Run: func(cmd *cobra.Command, args []string) {
		displayConfigPaths()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configBaseCmd)
}

// printHint shows a follow-up command
func printHint(cmd *cobra.Command, command string) {
	out := cmd.OutOrStdout()
	styles.PrintStyled(out, styles.InfoStyle, "→ next: ")
	styles.PrintStyledln(out, styles.CodeStyle, command)
}

func printValidation(source string, result *validation.ValidationResult) {
	fmt.Printf("%s\n\n", styles.HeaderStyle.Render("🔍 Configuration Validation"))
	fmt.Printf("Source: %s\n\n", styles.ValueStyle.Render(source))

	for _, e := range result.Errors {
		fmt.Printf("  %s %s: %s\n",
			styles.ErrorStyle.Render("✗"),
			styles.KeyStyle.Render(e.Field),
			e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  %s %s\n", styles.WarningStyle.Render("!"), w)
	}
	if len(result.Errors)+len(result.Warnings) > 0 {
		fmt.Println()
	}

	if result.Valid {
		logging.Successf("Configuration is valid")
	} else {
		logging.UserErrorf("Configuration has %d error(s)", len(result.Errors))
	}
}

// settingKeys lists the keys shown by config show, in display order
var settingKeys = []string{
	constants.KeyPatternsKey,
	constants.DebounceKey,
	constants.GrammarPathKey,
	constants.BasePathKey,
	constants.ReloadCmdKey,
	constants.LogLevelKey,
}

// displayCurrentConfiguration shows all current config values and sources
func displayCurrentConfiguration() {
	fmt.Printf("%s\n\n", styles.HeaderStyle.Render("⚙️  Current Configuration"))

	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Printf("📁 Active config file: %s\n\n", styles.SuccessStyle.Render(configFile))
	} else {
		fmt.Printf("📁 Active config file: %s\n\n", styles.MutedStyle.Render("none"))
	}

	for _, key := range settingKeys {
		fmt.Printf("  %s: %s %s\n",
			styles.KeyStyle.Render(key),
			styles.ValueStyle.Render(fmt.Sprintf("%v", viper.Get(key))),
			styles.MutedStyle.Render(fmt.Sprintf("(%s)", getConfigSource(key))))
	}
	fmt.Println()

	settings, err := config.Decode(viper.GetViper())
	if err != nil {
		utils.WarnOnError(err, "settings do not decode")
		return
	}
	fmt.Printf("%s\n", styles.SectionStyle.Render("📂 Effective"))
	fmt.Printf("  %d key pattern(s), debounce %s, grammar %s\n",
		len(settings.KeyPatterns), constants.ClampDebounce(settings.Debounce), settings.GrammarPath)
}

// envKey returns the environment variable that overrides key
func envKey(key string) string {
	return constants.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// getConfigSource determines where a configuration value came from
func getConfigSource(key string) string {
	if _, ok := os.LookupEnv(envKey(key)); ok {
		return "environment " + envKey(key)
	}

	if viper.ConfigFileUsed() != "" {
		v := viper.New()
		v.SetConfigFile(viper.ConfigFileUsed())
		if err := v.ReadInConfig(); err == nil && v.IsSet(key) {
			return "config file"
		}
	}

	return "default"
}

// displayConfigPaths shows configuration file search paths
func displayConfigPaths() {
	fmt.Printf("%s\n\n", styles.HeaderStyle.Render("📍 Configuration File Paths"))

	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Printf("🟢 Active: %s\n\n", styles.SuccessStyle.Render(configFile))
	} else {
		fmt.Printf("🔴 Active: %s\n\n", styles.MutedStyle.Render("none"))
	}

	fmt.Printf("%s\n", styles.SectionStyle.Render("🔍 Search Paths (in priority order)"))
	for i, dir := range config.SearchPaths() {
		path := filepath.Join(dir, config.ConfigName+".yaml")
		exists := styles.MutedStyle.Render("✗ not found")
		if _, err := os.Stat(path); err == nil {
			exists = styles.SuccessStyle.Render("✓ exists")
		}
		fmt.Printf("  %d. %s\n     %s\n", i+1, path, exists)
	}
	fmt.Println()

	fmt.Printf("%s\n", styles.SectionStyle.Render("💡 Tips"))
	fmt.Printf("• Use %s to create a project configuration\n", styles.CodeStyle.Render("yamlsql config init"))
	fmt.Printf("• Use %s to customise the base grammar\n", styles.CodeStyle.Render("yamlsql config base"))
	fmt.Printf("• Use %s to specify a custom config file\n", styles.CodeStyle.Render("--config path/to/config.yaml"))
	fmt.Printf("• Environment variables (%s_*) override config file values\n", constants.EnvPrefix)
}
