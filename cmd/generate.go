package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeeftor/yamlsql/internal/filesystem"
	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/pattern"
	"github.com/jeeftor/yamlsql/internal/session"
	"github.com/jeeftor/yamlsql/internal/utils"
)

var (
	generateFormat string
	generateStrict bool
)

// generateCmd writes the grammar once, for builds and CI
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the injection grammar once",
	Long: `Compile the configured key patterns and write the injection grammar.

Invalid patterns are reported and skipped; the grammar is still written
unless --strict is given. The file is only rewritten when its content changes.

Examples:
  yamlsql generate
  yamlsql generate -p query -p 'sql_.*' -o syntaxes/yaml-sql.json
  yamlsql generate --format yaml -o -`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSettings(cmd)
		if err != nil {
			utils.ValidationError(err)
		}
		settings := store.Snapshot()

		var doc *grammar.Document
		var result pattern.Result
		err = logging.LogOperation("generate", settings.GrammarPath, func() error {
			var buildErr error
			doc, result, buildErr = session.Build(settings)
			return buildErr
		})

		reportPatternErrors(result)
		utils.CheckErrorWithCode(err, "Failed to assemble grammar", utils.ExitCodeAssembly)
		if generateStrict && len(result.Errors) > 0 {
			utils.FatalErrorWithCode(patternErrors(result), "Invalid key patterns", utils.ExitCodePatterns)
		}

		data, err := encodeGrammar(doc, generateFormat)
		if err != nil {
			utils.ValidationError(err)
		}

		if settings.GrammarPath == "-" {
			_, err := os.Stdout.Write(data)
			return err
		}
		return writeGrammar(settings.GrammarPath, data, len(result.Rules))
	},
}

func encodeGrammar(doc *grammar.Document, format string) ([]byte, error) {
	switch format {
	case "", "json":
		return doc.Marshal()
	case "yaml", "yml":
		return doc.MarshalYAMLBytes()
	default:
		return nil, fmt.Errorf("unknown format %q (json, yaml)", format)
	}
}

func writeGrammar(path string, data []byte, rules int) error {
	if err := filesystem.ValidateOutputFile(path, "output"); err != nil {
		utils.ValidationError(err)
	}
	if filesystem.SameContent(path, data) {
		logging.Unchanged(path)
		return nil
	}

	err := filesystem.EnsureDirectoryForFile(path)
	if err == nil {
		err = filesystem.WriteFileAtomic(path, data, 0644)
	}
	utils.CheckErrorWithCode(err, "Failed to write grammar", utils.ExitCodeFileSystem)

	logging.SaveFile(path, fmt.Sprintf("%d rule(s)", rules))
	return nil
}

// patternErrors collects the skipped patterns, nil when there are none
func patternErrors(result pattern.Result) error {
	errs := make([]error, len(result.Errors))
	for i, pe := range result.Errors {
		errs[i] = pe
	}
	return utils.Join("key patterns", errs...)
}

// reportPatternErrors prints one line per skipped pattern
func reportPatternErrors(result pattern.Result) {
	for _, pe := range result.Errors {
		logging.SkippedPattern(pe.Index, pe.Pattern, pe.Err.Error())
	}
}

func init() {
	addGrammarFlags(generateCmd)
	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", "json", "output format (json, yaml)")
	generateCmd.Flags().BoolVar(&generateStrict, "strict", false, "fail when any key pattern is invalid")
	rootCmd.AddCommand(generateCmd)
}
