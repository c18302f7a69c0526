// Package preview shows which values of a YAML file the generated grammar
// would highlight as SQL, without an editor.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/pattern"
)

// Match is one mapping value whose key matched a pattern
type Match struct {
	// Path locates the value, e.g. jobs[0].query
	Path    string
	Key     string
	Line    int
	Column  int
	Pattern string
	Rule    string
	// Style is block, double, single or plain
	Style string
	Value string
}

type keyMatcher struct {
	rule pattern.InjectionRule
	name string
	re   *regexp2.Regexp
}

// Scanner matches YAML keys against compiled rules. Earlier rules win.
type Scanner struct {
	matchers []keyMatcher
}

// NewScanner compiles a full-key matcher per rule. Rules are named as they
// would be when assembled into base.
func NewScanner(base *grammar.Document, rules []pattern.InjectionRule) (*Scanner, error) {
	s := &Scanner{}
	names := grammar.AssignNames(base, rules)
	for i, r := range rules {
		re, err := r.Pattern.Matcher()
		if err != nil {
			return nil, fmt.Errorf("pattern #%d: %w", r.Pattern.Index, err)
		}
		s.matchers = append(s.matchers, keyMatcher{rule: r, name: names[i], re: re})
	}
	return s, nil
}

// Scan walks every document in data and returns matches in document order
func (s *Scanner) Scan(data []byte) ([]Match, error) {
	var matches []Match
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		s.walk(&doc, "", &matches)
	}
	return matches, nil
}

func (s *Scanner) walk(n *yaml.Node, path string, out *[]Match) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			s.walk(c, path, out)
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			s.walk(c, fmt.Sprintf("%s[%d]", path, i), out)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			child := k.Value
			if path != "" {
				child = path + "." + k.Value
			}
			if k.Kind == yaml.ScalarNode && v.Kind == yaml.ScalarNode && v.ShortTag() == "!!str" {
				if m, ok := s.match(k.Value); ok {
					*out = append(*out, Match{
						Path:    child,
						Key:     k.Value,
						Line:    k.Line,
						Column:  k.Column,
						Pattern: m.rule.Pattern.Raw,
						Rule:    m.name,
						Style:   scalarStyle(v.Style),
						Value:   v.Value,
					})
				}
			}
			s.walk(v, child, out)
		}
	}
}

func (s *Scanner) match(key string) (keyMatcher, bool) {
	for _, m := range s.matchers {
		if ok, err := m.re.MatchString(key); err == nil && ok {
			return m, true
		}
	}
	return keyMatcher{}, false
}

func scalarStyle(st yaml.Style) string {
	switch {
	case st&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		return "block"
	case st&yaml.DoubleQuotedStyle != 0:
		return "double"
	case st&yaml.SingleQuotedStyle != 0:
		return "single"
	default:
		return "plain"
	}
}
