package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeeftor/yamlsql/internal/styles"
)

// Options control how matches are printed
type Options struct {
	// Style is a chroma style name (default monokai)
	Style string
	// Formatter is a chroma formatter name (default terminal256, "noop" for plain text)
	Formatter string
}

// Highlight writes sql highlighted with chroma's SQL lexer
func Highlight(w io.Writer, sql string, opts Options) error {
	lexer := lexers.Get("sql")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(defaultString(opts.Style, "monokai"))
	formatter := formatters.Get(defaultString(opts.Formatter, "terminal256"))
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, sql)
	if err != nil {
		return fmt.Errorf("failed to tokenise sql: %w", err)
	}
	return formatter.Format(w, style, iterator)
}

// Render prints each match with its location and highlighted value
func Render(w io.Writer, file string, matches []Match, opts Options) error {
	if len(matches) == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("No keys in "+file+" match the configured patterns"))
		return nil
	}

	for i, m := range matches {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n",
			styles.KeyStyle.Render(m.Path),
			styles.MutedStyle.Render(fmt.Sprintf("%s:%d:%d  %s  %s (%q)", file, m.Line, m.Column, m.Style, m.Rule, m.Pattern)))

		var body strings.Builder
		if err := Highlight(&body, strings.TrimRight(m.Value, "\n"), opts); err != nil {
			return err
		}
		for _, line := range strings.Split(body.String(), "\n") {
			fmt.Fprintln(w, "    "+line)
		}
	}
	return nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
