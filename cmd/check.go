package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/pattern"
	"github.com/jeeftor/yamlsql/internal/session"
	"github.com/jeeftor/yamlsql/internal/styles"
	"github.com/jeeftor/yamlsql/internal/tui"
	"github.com/jeeftor/yamlsql/internal/utils"
)

// checkCmd reports what each configured key pattern compiles to
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate key patterns and show the rule each one produces",
	Long: `Compile the configured key patterns and print one row per pattern with
the repository rule it produces, or why it is skipped.

Exits with status 2 when any pattern is invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSettings(cmd)
		if err != nil {
			utils.ValidationError(err)
		}
		settings := store.Snapshot()

		base, err := session.Base(settings)
		utils.CheckErrorWithCode(err, "Failed to load base grammar", utils.ExitCodeAssembly)

		result := pattern.Compile(settings.KeyPatterns)
		rows := patternRows(settings, base, result)

		width := terminalWidth(100)
		r := tui.NewRenderer(width)
		fmt.Println(r.RenderTitle("Key patterns"))
		fmt.Println()
		if len(rows) == 0 {
			fmt.Println(styles.MutedStyle.Render("No key patterns configured"))
			return nil
		}
		fmt.Println(r.RenderTable([]string{"#", "Pattern", "Status", "Rule / reason"}, rows, width-9))
		fmt.Println()

		if err := patternErrors(result); err != nil {
			utils.FatalErrorWithCode(err, "Invalid key patterns", utils.ExitCodePatterns)
		}

		styles.PrintStyledln(cmd.OutOrStdout(), styles.SuccessStyle,
			fmt.Sprintf("✓ %d pattern(s) compile to %d rule(s)", len(settings.KeyPatterns), len(result.Rules)))
		return nil
	},
}

// patternRows builds one table row per configured pattern, in input order
func patternRows(settings config.Settings, base *grammar.Document, result pattern.Result) [][]string {
	names := grammar.AssignNames(base, result.Rules)

	byIndex := make(map[int]string, len(result.Rules))
	firstByForm := make(map[string]int, len(result.Rules))
	for i, r := range result.Rules {
		byIndex[r.Pattern.Index] = names[i]
		firstByForm[r.Pattern.Normalized] = r.Pattern.Index
	}
	errByIndex := make(map[int]*pattern.InvalidPatternError, len(result.Errors))
	for _, pe := range result.Errors {
		errByIndex[pe.Index] = pe
	}

	rows := make([][]string, 0, len(settings.KeyPatterns))
	for i, raw := range settings.KeyPatterns {
		row := []string{strconv.Itoa(i), raw}
		switch {
		case byIndex[i] != "":
			row = append(row, "ok", byIndex[i])
		case errByIndex[i] != nil:
			row = append(row, "invalid", errByIndex[i].Err.Error())
		default:
			row = append(row, "duplicate", fmt.Sprintf("same as #%d", firstByForm[pattern.Normalize(raw)]))
		}
		rows = append(rows, row)
	}
	return rows
}

func init() {
	addPatternFlag(checkCmd)
	checkCmd.Flags().String(flagBase, "", "base grammar template, YAML or JSON (default: embedded)")
	rootCmd.AddCommand(checkCmd)
}
