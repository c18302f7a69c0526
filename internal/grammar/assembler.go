package grammar

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jeeftor/yamlsql/internal/embedded"
	"github.com/jeeftor/yamlsql/internal/filesystem"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/pattern"
)

// Repository entries the injected rules reference; a base template without
// them is corrupt.
const (
	SQLRule          = "sql"
	DoubleEscapeRule = "double-quoted-escape"
	SingleEscapeRule = "single-quoted-escape"
)

var requiredBaseRules = []string{SQLRule, DoubleEscapeRule, SingleEscapeRule}

// DefaultBase parses the base template embedded in the binary
func DefaultBase() (*Document, error) {
	data, err := embedded.BaseGrammar()
	if err != nil {
		return nil, &AssemblyError{Stage: "base template", Err: err}
	}
	doc, err := ParseYAML(data)
	if err != nil {
		return nil, &AssemblyError{Stage: "base template", Err: err}
	}
	return doc, nil
}

// LoadBase reads a base template override from disk (YAML or JSON)
func LoadBase(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &AssemblyError{Stage: "base template", Err: err}
	}

	var doc *Document
	if filesystem.IsJSONFile(path) {
		doc, err = ParseJSON(data)
	} else {
		doc, err = ParseYAML(data)
	}
	if err != nil {
		return nil, &AssemblyError{Stage: "base template", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return doc, nil
}

// CheckBase verifies a base template can host injected rules
func CheckBase(base *Document) error {
	if base == nil {
		return &AssemblyError{Stage: "base template", Err: ErrMissingBase}
	}
	if err := base.Validate(); err != nil {
		return &AssemblyError{Stage: "base template", Err: err}
	}
	for _, name := range requiredBaseRules {
		if _, ok := base.Repository[name]; !ok {
			return &AssemblyError{
				Stage: "base template",
				Err:   fmt.Errorf("repository rule %q is missing", name),
			}
		}
	}
	return nil
}

// Assemble merges compiled rules into a copy of base. Rule names that collide
// with each other or with base entries get a numeric suffix in input order.
// The base document is never modified.
func Assemble(base *Document, rules []pattern.InjectionRule) (*Document, error) {
	if err := CheckBase(base); err != nil {
		return nil, err
	}

	doc := base.Clone()
	for i, name := range AssignNames(base, rules) {
		r := rules[i]
		if name != r.Name {
			logging.Debug("Disambiguated rule name",
				"pattern", r.Pattern.Raw,
				"proposed", r.Name,
				"assigned", name)
		}
		doc.Repository[name] = injectionRule(name, r)
		doc.Patterns = append(doc.Patterns, Rule{Include: "#" + name})
	}

	if err := roundTrip(doc); err != nil {
		return nil, &AssemblyError{Stage: "round trip", Err: err}
	}

	logging.Debug("Assembled grammar",
		"scope", doc.ScopeName,
		"rules", len(rules),
		"repository", len(doc.Repository))
	return doc, nil
}

// AssignNames returns the repository name each rule receives when assembled
// into base, in rule order
func AssignNames(base *Document, rules []pattern.InjectionRule) []string {
	var repo map[string]Rule
	if base != nil {
		repo = base.Repository
	}
	n := newNamer(repo)
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = n.claim(r.Name)
	}
	return names
}

// roundTrip serializes the document, loads it back and validates the result
// the way the host's grammar loader would see it.
func roundTrip(doc *Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	loaded, err := ParseJSON(data)
	if err != nil {
		return err
	}
	return loaded.Validate()
}

type namer struct {
	taken map[string]bool
}

func newNamer(repo map[string]Rule) *namer {
	n := &namer{taken: make(map[string]bool, len(repo))}
	for name := range repo {
		n.taken[name] = true
	}
	return n
}

func (n *namer) claim(name string) string {
	candidate := name
	for i := 2; n.taken[candidate]; i++ {
		candidate = name + "-" + strconv.Itoa(i)
	}
	n.taken[candidate] = true
	return candidate
}

func keyCaptures(r pattern.InjectionRule, value string) map[string]Capture {
	return map[string]Capture{
		strconv.Itoa(pattern.CaptureDash): {Name: "punctuation.definition.block.sequence.item.yaml"},
		strconv.Itoa(pattern.CaptureKey):  {Name: "entity.name.tag.yaml"},
		strconv.Itoa(r.ColonCapture):      {Name: "punctuation.separator.key-value.mapping.yaml"},
		strconv.Itoa(r.ValueCapture):      {Name: value},
	}
}

// injectionRule builds the repository entry for one key pattern. Every scope
// it assigns carries the rule name, so adding or removing a pattern changes
// the document's scope set while editing a pattern in place does not.
func injectionRule(name string, r pattern.InjectionRule) Rule {
	embeddedScope := func(kind string) string {
		return "meta.embedded." + kind + ".sql." + name
	}

	plainCaptures := keyCaptures(r, "")
	plainCaptures[strconv.Itoa(r.ValueCapture)] = Capture{
		Name:     embeddedScope("inline"),
		Patterns: []Rule{{Include: "#" + SQLRule}},
	}

	return Rule{
		Patterns: []Rule{
			{
				Begin:         r.BlockBegin,
				End:           r.BlockEnd,
				BeginCaptures: keyCaptures(r, "keyword.control.flow.block-scalar.yaml"),
				ContentName:   embeddedScope("block"),
				Patterns:      []Rule{{Include: "#" + SQLRule}},
			},
			{
				Begin:         r.DoubleBegin,
				End:           r.DoubleEnd,
				BeginCaptures: keyCaptures(r, "punctuation.definition.string.begin.yaml"),
				EndCaptures:   map[string]Capture{"1": {Name: "punctuation.definition.string.end.yaml"}},
				ContentName:   embeddedScope("double"),
				Patterns: []Rule{
					{Include: "#" + DoubleEscapeRule},
					{Include: "#" + SQLRule},
				},
			},
			{
				Begin:         r.SingleBegin,
				End:           r.SingleEnd,
				BeginCaptures: keyCaptures(r, "punctuation.definition.string.begin.yaml"),
				EndCaptures:   map[string]Capture{"1": {Name: "punctuation.definition.string.end.yaml"}},
				ContentName:   embeddedScope("single"),
				Patterns: []Rule{
					{Include: "#" + SingleEscapeRule},
					{Include: "#" + SQLRule},
				},
			},
			{
				Match:    r.PlainMatch,
				Captures: plainCaptures,
			},
		},
	}
}
