package grammar

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeftor/yamlsql/internal/pattern"
)

func defaultBase(t *testing.T) *Document {
	t.Helper()
	base, err := DefaultBase()
	require.NoError(t, err)
	return base
}

func assemble(t *testing.T, patterns ...string) *Document {
	t.Helper()
	result := pattern.Compile(patterns)
	doc, err := Assemble(defaultBase(t), result.Rules)
	require.NoError(t, err)
	return doc
}

func includes(doc *Document) []string {
	var out []string
	for _, p := range doc.Patterns {
		out = append(out, p.Include)
	}
	return out
}

func TestDefaultBaseIsValid(t *testing.T) {
	base := defaultBase(t)
	assert.NoError(t, CheckBase(base))
	assert.Equal(t, "yaml-sql.injection", base.ScopeName)
	assert.Equal(t, "L:source.yaml -comment", base.InjectionSelector)
	assert.Empty(t, base.Patterns)
}

func TestAssembleScenarioTwoPatterns(t *testing.T) {
	doc := assemble(t, "query", "sql_.*")

	assert.Equal(t, []string{"#key-query", "#key-sql"}, includes(doc))
	require.Contains(t, doc.Repository, "key-query")
	require.Contains(t, doc.Repository, "key-sql")

	block := doc.Repository["key-sql"].Patterns[0]
	assert.Contains(t, block.Begin, "(?:sql_.*)")
	assert.Equal(t, "meta.embedded.block.sql.key-sql", block.ContentName)
	assert.NoError(t, doc.Validate())
}

func TestAssembleScenarioInvalidOnly(t *testing.T) {
	result := pattern.Compile([]string{"(unclosed"})
	require.Len(t, result.Errors, 1)

	doc, err := Assemble(defaultBase(t), result.Rules)
	require.NoError(t, err)
	assert.Empty(t, doc.Patterns)
	assert.ElementsMatch(t,
		[]string{SQLRule, DoubleEscapeRule, SingleEscapeRule},
		doc.RepositoryNames())
	assert.NoError(t, doc.Validate())
}

func TestAssembleDisambiguatesCollisions(t *testing.T) {
	doc := assemble(t, "sql_.*", "sql-.*", "SQL", "sql_2")

	assert.Equal(t,
		[]string{"#key-sql", "#key-sql-2", "#key-sql-3", "#key-sql-2-2"},
		includes(doc))
	assert.Contains(t, doc.Repository["key-sql-2"].Patterns[0].Begin, "(?:sql-.*)")
	assert.Contains(t, doc.Repository["key-sql-3"].Patterns[0].Begin, "(?:SQL)")
	assert.Contains(t, doc.Repository["key-sql-2-2"].Patterns[0].Begin, "(?:sql_2)")
}

func TestAssembleAvoidsBaseNames(t *testing.T) {
	base := defaultBase(t)
	base.Repository["key-query"] = Rule{Match: "x", Name: "base.owned"}

	doc, err := Assemble(base, pattern.Compile([]string{"query"}).Rules)
	require.NoError(t, err)

	assert.Equal(t, []string{"#key-query-2"}, includes(doc))
	assert.Equal(t, "base.owned", doc.Repository["key-query"].Name)
}

func TestAssembleDoesNotMutateBase(t *testing.T) {
	base := defaultBase(t)
	before, err := base.Marshal()
	require.NoError(t, err)

	_, err = Assemble(base, pattern.Compile([]string{"query", "sql_.*"}).Rules)
	require.NoError(t, err)

	after, err := base.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestAssembleIsIdempotent(t *testing.T) {
	patterns := []string{"query", "sql_.*", "(select|insert)_stmt", "sql-.*"}

	first, err := assemble(t, patterns...).Marshal()
	require.NoError(t, err)
	second, err := assemble(t, patterns...).Marshal()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(string(first), "}\n"))
}

func TestAssembleRoundTripsThroughJSON(t *testing.T) {
	doc := assemble(t, "query", "sql_.*")
	data, err := doc.Marshal()
	require.NoError(t, err)

	loaded, err := ParseJSON(data)
	require.NoError(t, err)
	assert.NoError(t, loaded.Validate())
	assert.Equal(t, doc.RepositoryNames(), loaded.RepositoryNames())

	again, err := loaded.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestAssembleFailsWithoutBase(t *testing.T) {
	_, err := Assemble(nil, nil)

	var ae *AssemblyError
	require.True(t, errors.As(err, &ae))
	assert.True(t, errors.Is(err, ErrMissingBase))
}

func TestAssembleFailsOnCorruptBase(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"missing scope", func(d *Document) { d.ScopeName = "" }},
		{"missing sql rule", func(d *Document) { delete(d.Repository, SQLRule) }},
		{"dangling include", func(d *Document) {
			d.Patterns = append(d.Patterns, Rule{Include: "#nowhere"})
		}},
		{"bad expression", func(d *Document) {
			d.Repository[DoubleEscapeRule] = Rule{Match: "(oops"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := defaultBase(t)
			tt.mutate(base)

			_, err := Assemble(base, pattern.Compile([]string{"query"}).Rules)

			var ae *AssemblyError
			require.True(t, errors.As(err, &ae), "got %v", err)
			assert.Equal(t, "base template", ae.Stage)
		})
	}
}

func TestLoadBase(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "base.yaml")
	data, err := defaultBase(t).MarshalYAMLBytes()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(yamlPath, data, 0644))

	base, err := LoadBase(yamlPath)
	require.NoError(t, err)
	assert.NoError(t, CheckBase(base))

	jsonPath := filepath.Join(dir, "base.json")
	data, err = base.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(jsonPath, data, 0644))

	fromJSON, err := LoadBase(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, base.RepositoryNames(), fromJSON.RepositoryNames())

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))
	_, err = LoadBase(corrupt)
	var ae *AssemblyError
	assert.True(t, errors.As(err, &ae))

	_, err = LoadBase(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.As(err, &ae))
}

func TestAssignNamesMatchesAssemble(t *testing.T) {
	base := defaultBase(t)
	result := pattern.Compile([]string{"sql", ".*_sql", "sql"})
	names := AssignNames(base, result.Rules)
	assert.Equal(t, []string{"key-sql", "key-sql-2"}, names)

	doc, err := Assemble(base, result.Rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"#key-sql", "#key-sql-2"}, includes(doc))
}
