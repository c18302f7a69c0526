package pattern

import (
	"errors"
	"fmt"

	"github.com/jeeftor/yamlsql/internal/logging"
)

// Capture positions shared by every begin/match expression below. The key
// pattern's own groups sit between CaptureKey and the colon.
const (
	CaptureIndent = 1
	CaptureDash   = 2
	CaptureKey    = 3
)

// InjectionRule holds the TextMate expressions that inject SQL tokenization
// into the value of every YAML key matching one KeyPattern.
type InjectionRule struct {
	// Name is the proposed repository name, before disambiguation
	Name    string
	Pattern KeyPattern

	BlockBegin   string
	BlockEnd     string
	DoubleBegin  string
	DoubleEnd    string
	SingleBegin  string
	SingleEnd    string
	PlainMatch   string
	ColonCapture int
	ValueCapture int
}

// Result is the output of Compile
type Result struct {
	Rules  []InjectionRule
	Errors []*InvalidPatternError
}

// Err returns the pattern errors joined, or nil
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Compile turns the configured key patterns into injection rules in input
// order. Invalid entries are skipped and reported, one error per entry.
// Later duplicates (same normalized form) are dropped silently.
func Compile(patterns []string) Result {
	var result Result
	seen := make(map[string]int, len(patterns))

	for i, raw := range patterns {
		kp, err := Parse(raw, i)
		if err != nil {
			var ipe *InvalidPatternError
			if errors.As(err, &ipe) {
				result.Errors = append(result.Errors, ipe)
			}
			continue
		}

		if first, dup := seen[kp.Normalized]; dup {
			logging.Debug("Dropping duplicate key pattern",
				"index", i,
				"pattern", raw,
				"first_index", first)
			continue
		}
		seen[kp.Normalized] = i

		result.Rules = append(result.Rules, NewRule(kp))
	}

	return result
}

// NewRule builds the injection expressions for a validated key pattern
func NewRule(kp KeyPattern) InjectionRule {
	key := fmt.Sprintf(`^(\s*)(?:(-)\s+)?(%s)\s*`, groupKey(kp))
	colon := CaptureKey + kp.Groups + 1
	value := colon + 1

	return InjectionRule{
		Name:    "key-" + kp.Slug(),
		Pattern: kp,

		// key: |  /  key: >-  followed by an indented block
		BlockBegin: key + `(:)\s*([|>](?:[1-9][-+]?|[-+][1-9]?)?)\s*(?:#.*)?$`,
		// the block ends at the first non-blank line not indented past the key
		BlockEnd: `^(?!\1\s+\S|\s*$)`,

		DoubleBegin: key + `(:)\s*(")`,
		DoubleEnd:   `(")`,

		SingleBegin: key + `(:)\s*(')`,
		SingleEnd:   `(')(?!')`,

		PlainMatch: key + `(:)\s+([^\s"'|>#&*!%@` + "`" + `{\[][^#\n]*?)\s*(?:\s#.*)?$`,

		ColonCapture: colon,
		ValueCapture: value,
	}
}

// groupKey wraps the pattern so alternations stay inside the key position
func groupKey(kp KeyPattern) string {
	return "(?:" + kp.Normalized + ")"
}
