// Package pattern turns configured YAML key patterns into injection rules.
//
// Patterns are validated with regexp2 because TextMate engines run Oniguruma,
// which accepts lookarounds and backreferences that Go's RE2 engine rejects.
package pattern

import (
	"errors"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// ErrEmptyPattern is reported for blank entries in keyPatterns
var ErrEmptyPattern = errors.New("empty pattern")

// ErrNumberedBackreference is reported for \1 style references. The rule
// places capture groups in front of the key, so group numbers inside the
// pattern would point at the wrong group. Named references (\k<name>) work.
var ErrNumberedBackreference = errors.New(`numbered backreference, use a named group and \k<name>`)

// KeyPattern is one configured entry of keyPatterns
type KeyPattern struct {
	// Raw is the string exactly as configured
	Raw string
	// Index is the position in the configured sequence
	Index int
	// Normalized is the form used for matching and deduplication
	Normalized string
	// Groups is the number of capture groups the pattern itself declares
	Groups int
}

// Normalize trims whitespace and strips one leading ^ and one unescaped trailing $.
// The generated rule anchors the key on both sides already.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "^")
	if strings.HasSuffix(s, "$") && !strings.HasSuffix(s, `\$`) {
		s = strings.TrimSuffix(s, "$")
	}
	return s
}

// Parse validates raw as a regular expression and returns its KeyPattern
func Parse(raw string, index int) (KeyPattern, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return KeyPattern{}, &InvalidPatternError{Index: index, Pattern: raw, Err: ErrEmptyPattern}
	}

	re, err := regexp2.Compile(normalized, regexp2.None)
	if err != nil {
		return KeyPattern{}, &InvalidPatternError{Index: index, Pattern: raw, Err: err}
	}
	if hasNumberedBackreference(normalized) {
		return KeyPattern{}, &InvalidPatternError{Index: index, Pattern: raw, Err: ErrNumberedBackreference}
	}

	return KeyPattern{
		Raw:        raw,
		Index:      index,
		Normalized: normalized,
		Groups:     len(re.GetGroupNumbers()) - 1,
	}, nil
}

// hasNumberedBackreference reports \N and \k<N> references outside
// character classes
func hasNumberedBackreference(expr string) bool {
	inClass := false
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; {
		case c == '\\' && i+1 < len(expr):
			next := expr[i+1]
			if !inClass {
				if next >= '1' && next <= '9' {
					return true
				}
				if next == 'k' && i+3 < len(expr) && (expr[i+2] == '<' || expr[i+2] == '\'') &&
					expr[i+3] >= '0' && expr[i+3] <= '9' {
					return true
				}
			}
			i++
		case c == '[' && !inClass:
			inClass = true
			// a leading ] or ^] is a literal member
			if i+1 < len(expr) && expr[i+1] == '^' {
				i++
			}
			if i+1 < len(expr) && expr[i+1] == ']' {
				i++
			}
		case c == ']' && inClass:
			inClass = false
		}
	}
	return false
}

// Matcher returns a full-key matcher for the pattern
func (p KeyPattern) Matcher() (*regexp2.Regexp, error) {
	return regexp2.Compile(`^(?:`+p.Normalized+`)$`, regexp2.None)
}

// Slug derives a readable rule name fragment from the normalized pattern.
// Distinct patterns can share a slug; the assembler disambiguates.
func (p KeyPattern) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(p.Normalized) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "pattern"
	}
	return slug
}
