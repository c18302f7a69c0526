// Package grammar models TextMate grammar documents and assembles the YAML
// SQL injection grammar from a base template and compiled key-pattern rules.
package grammar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a TextMate grammar
type Document struct {
	Schema            string          `json:"$schema,omitempty" yaml:"$schema,omitempty"`
	Name              string          `json:"name" yaml:"name"`
	ScopeName         string          `json:"scopeName" yaml:"scopeName"`
	InjectionSelector string          `json:"injectionSelector,omitempty" yaml:"injectionSelector,omitempty"`
	FileTypes         []string        `json:"fileTypes,omitempty" yaml:"fileTypes,omitempty"`
	Patterns          []Rule          `json:"patterns" yaml:"patterns"`
	Repository        map[string]Rule `json:"repository" yaml:"repository"`
}

// Rule is a pattern entry, either inline or in the repository
type Rule struct {
	Include       string             `json:"include,omitempty" yaml:"include,omitempty"`
	Name          string             `json:"name,omitempty" yaml:"name,omitempty"`
	ContentName   string             `json:"contentName,omitempty" yaml:"contentName,omitempty"`
	Match         string             `json:"match,omitempty" yaml:"match,omitempty"`
	Begin         string             `json:"begin,omitempty" yaml:"begin,omitempty"`
	End           string             `json:"end,omitempty" yaml:"end,omitempty"`
	Captures      map[string]Capture `json:"captures,omitempty" yaml:"captures,omitempty"`
	BeginCaptures map[string]Capture `json:"beginCaptures,omitempty" yaml:"beginCaptures,omitempty"`
	EndCaptures   map[string]Capture `json:"endCaptures,omitempty" yaml:"endCaptures,omitempty"`
	Patterns      []Rule             `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// Capture names or re-tokenizes one capture group
type Capture struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Patterns []Rule `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// Marshal renders the document as indented JSON. Output is deterministic:
// repository and capture maps are emitted with sorted keys.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to marshal grammar: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalYAMLBytes renders the document as YAML for `generate --format yaml`
func (d *Document) MarshalYAMLBytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to marshal grammar as yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseJSON loads a grammar document from JSON
func ParseJSON(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse grammar json: %w", err)
	}
	d.ensureMaps()
	return &d, nil
}

// ParseYAML loads a grammar document from YAML
func ParseYAML(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse grammar yaml: %w", err)
	}
	d.ensureMaps()
	return &d, nil
}

func (d *Document) ensureMaps() {
	if d.Repository == nil {
		d.Repository = make(map[string]Rule)
	}
	if d.Patterns == nil {
		d.Patterns = []Rule{}
	}
}

// Clone returns a deep copy
func (d *Document) Clone() *Document {
	c := *d
	c.FileTypes = append([]string(nil), d.FileTypes...)
	c.Patterns = cloneRules(d.Patterns)
	if c.Patterns == nil {
		c.Patterns = []Rule{}
	}
	c.Repository = make(map[string]Rule, len(d.Repository))
	for name, rule := range d.Repository {
		c.Repository[name] = cloneRule(rule)
	}
	return &c
}

func cloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = cloneRule(r)
	}
	return out
}

func cloneRule(r Rule) Rule {
	r.Captures = cloneCaptures(r.Captures)
	r.BeginCaptures = cloneCaptures(r.BeginCaptures)
	r.EndCaptures = cloneCaptures(r.EndCaptures)
	r.Patterns = cloneRules(r.Patterns)
	return r
}

func cloneCaptures(in map[string]Capture) map[string]Capture {
	if in == nil {
		return nil
	}
	out := make(map[string]Capture, len(in))
	for k, c := range in {
		c.Patterns = cloneRules(c.Patterns)
		out[k] = c
	}
	return out
}

// RepositoryNames returns the repository rule names sorted
func (d *Document) RepositoryNames() []string {
	names := make([]string, 0, len(d.Repository))
	for name := range d.Repository {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScopeNames returns every scope name the document can assign: the grammar's
// own scopeName plus all rule, content and capture names, sorted.
func (d *Document) ScopeNames() []string {
	set := map[string]struct{}{}
	if d.ScopeName != "" {
		set[d.ScopeName] = struct{}{}
	}
	var walk func(rules []Rule)
	addCaptures := func(caps map[string]Capture) {
		for _, c := range caps {
			if c.Name != "" {
				set[c.Name] = struct{}{}
			}
			walk(c.Patterns)
		}
	}
	walk = func(rules []Rule) {
		for _, r := range rules {
			for _, n := range []string{r.Name, r.ContentName} {
				if n != "" {
					set[n] = struct{}{}
				}
			}
			addCaptures(r.Captures)
			addCaptures(r.BeginCaptures)
			addCaptures(r.EndCaptures)
			walk(r.Patterns)
		}
	}

	walk(d.Patterns)
	for _, name := range d.RepositoryNames() {
		walk([]Rule{d.Repository[name]})
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Includes reports whether any rule includes the external grammar scope
func (d *Document) Includes(scope string) bool {
	var walk func(rules []Rule) bool
	inCaptures := func(caps map[string]Capture) bool {
		for _, c := range caps {
			if walk(c.Patterns) {
				return true
			}
		}
		return false
	}
	walk = func(rules []Rule) bool {
		for _, r := range rules {
			if r.Include == scope || walk(r.Patterns) ||
				inCaptures(r.Captures) || inCaptures(r.BeginCaptures) || inCaptures(r.EndCaptures) {
				return true
			}
		}
		return false
	}

	if walk(d.Patterns) {
		return true
	}
	for _, r := range d.Repository {
		if walk([]Rule{r}) {
			return true
		}
	}
	return false
}

// ScopeDiff lists scope names present only in next (added) or only in prev (removed)
func ScopeDiff(prev, next *Document) (added, removed []string) {
	var before, after []string
	if prev != nil {
		before = prev.ScopeNames()
	}
	if next != nil {
		after = next.ScopeNames()
	}

	inBefore := make(map[string]bool, len(before))
	for _, s := range before {
		inBefore[s] = true
	}
	inAfter := make(map[string]bool, len(after))
	for _, s := range after {
		inAfter[s] = true
		if !inBefore[s] {
			added = append(added, s)
		}
	}
	for _, s := range before {
		if !inAfter[s] {
			removed = append(removed, s)
		}
	}
	return added, removed
}

// localInclude returns the repository name for "#name" includes
func localInclude(include string) (string, bool) {
	if strings.HasPrefix(include, "#") {
		return include[1:], true
	}
	return "", false
}
