package grammar

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Issue is a single structural problem found in a document
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// ValidationError collects every issue found by Validate
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid grammar: " + e.Issues[0].String()
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("invalid grammar (%d issues): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Validate checks the structural contract: a scope name, no dangling
// local includes, begin rules with an end, and compilable match/begin
// expressions. End expressions may back-reference begin captures and are
// therefore not compiled on their own.
func (d *Document) Validate() error {
	v := &validator{doc: d}

	if strings.TrimSpace(d.ScopeName) == "" {
		v.add("scopeName", "missing scope name")
	}
	if d.Repository == nil {
		v.add("repository", "missing repository")
	}

	v.rules("patterns", d.Patterns)
	for _, name := range d.RepositoryNames() {
		if strings.TrimSpace(name) == "" {
			v.add("repository", "empty rule name")
		}
		v.rule("repository."+name, d.Repository[name])
	}

	if len(v.issues) > 0 {
		return &ValidationError{Issues: v.issues}
	}
	return nil
}

type validator struct {
	doc    *Document
	issues []Issue
}

func (v *validator) add(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) rules(path string, rules []Rule) {
	for i, r := range rules {
		v.rule(fmt.Sprintf("%s[%d]", path, i), r)
	}
}

func (v *validator) rule(path string, r Rule) {
	if r.Include != "" {
		if name, local := localInclude(r.Include); local {
			if _, ok := v.doc.Repository[name]; !ok {
				v.add(path, "dangling reference %q", r.Include)
			}
		}
	}

	if r.Begin != "" && r.End == "" {
		v.add(path, "begin without end")
	}
	if r.End != "" && r.Begin == "" {
		v.add(path, "end without begin")
	}
	if r.Match != "" && r.Begin != "" {
		v.add(path, "rule has both match and begin")
	}
	if r.Include == "" && r.Match == "" && r.Begin == "" && len(r.Patterns) == 0 {
		v.add(path, "empty rule")
	}

	v.expr(path+".match", r.Match)
	v.expr(path+".begin", r.Begin)

	v.captures(path+".captures", r.Captures)
	v.captures(path+".beginCaptures", r.BeginCaptures)
	v.captures(path+".endCaptures", r.EndCaptures)
	v.rules(path+".patterns", r.Patterns)
}

func (v *validator) captures(path string, caps map[string]Capture) {
	for key, c := range caps {
		v.rules(path+"."+key+".patterns", c.Patterns)
	}
}

func (v *validator) expr(path, expr string) {
	if expr == "" {
		return
	}
	if _, err := regexp2.Compile(expr, regexp2.None); err != nil {
		v.add(path, "invalid expression: %v", err)
	}
}
