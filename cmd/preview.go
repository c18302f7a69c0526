package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeeftor/yamlsql/internal/filesystem"
	"github.com/jeeftor/yamlsql/internal/pattern"
	"github.com/jeeftor/yamlsql/internal/preview"
	"github.com/jeeftor/yamlsql/internal/session"
	"github.com/jeeftor/yamlsql/internal/utils"
)

var (
	previewStyle string
	previewPlain bool
)

// previewCmd shows which values of a YAML file would be highlighted as SQL
var previewCmd = &cobra.Command{
	Use:   "preview FILE [FILE...]",
	Short: "Show the YAML values the grammar highlights as SQL",
	Long: `Walk YAML files, match every mapping key against the configured key
patterns and print the matching string values highlighted as SQL.

Examples:
  yamlsql preview pipeline.yaml
  yamlsql preview -p 'query|stmt' --style dracula jobs/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSettings(cmd)
		if err != nil {
			utils.ValidationError(err)
		}
		settings := store.Snapshot()

		result := pattern.Compile(settings.KeyPatterns)
		reportPatternErrors(result)

		base, err := session.Base(settings)
		utils.CheckErrorWithCode(err, "Failed to load base grammar", utils.ExitCodeAssembly)

		scanner, err := preview.NewScanner(base, result.Rules)
		if err != nil {
			return err
		}

		opts := preview.Options{Style: previewStyle}
		if previewPlain {
			opts.Formatter = "noop"
		}

		errs := utils.NewMultiError("preview")
		for i, file := range args {
			if err := filesystem.ValidateInputFile(file, "file"); err != nil {
				errs.Add(err)
				continue
			}
			data, err := os.ReadFile(file)
			if err != nil {
				errs.Add(err)
				continue
			}
			matches, err := scanner.Scan(data)
			if err != nil {
				errs.Add(fmt.Errorf("%s: %w", file, err))
				continue
			}
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if err := preview.Render(cmd.OutOrStdout(), file, matches, opts); err != nil {
				errs.Add(err)
			}
		}
		return errs.ErrOrNil()
	},
}

func init() {
	addPatternFlag(previewCmd)
	previewCmd.Flags().String(flagBase, "", "base grammar template, YAML or JSON (default: embedded)")
	previewCmd.Flags().StringVar(&previewStyle, "style", "monokai", "chroma style for SQL highlighting")
	previewCmd.Flags().BoolVar(&previewPlain, "plain", false, "print values without colour")
	rootCmd.AddCommand(previewCmd)
}
