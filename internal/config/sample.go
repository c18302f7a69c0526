package config

// SampleConfig is written by `yamlsql config init`
const SampleConfig = `# yamlsql configuration
#
# Search order: ./.yamlsql.yaml, ~/.yamlsql.yaml, $XDG_CONFIG_HOME/yamlsql/.yamlsql.yaml
# Environment variables override the file, e.g.
#   YAMLSQL_LOG_LEVEL=debug
#   YAMLSQL_YAMLSQLHIGHLIGHT_KEYPATTERNS='["query", "sql_\\d{1,3}"]'
# A key pattern list in the environment is a YAML flow sequence; any other
# value is a single pattern.

log_level: info

yamlSqlHighlight:
  # Regular expressions tested against whole YAML mapping keys. Order matters:
  # earlier patterns take precedence in the generated grammar.
  keyPatterns:
    - sql
    - query
    - .*_sql
    - sql_.*

  # Quiet period after the last edit before the grammar is regenerated
  debounce: 500ms

  # Where the generated injection grammar is written
  grammarPath: syntaxes/yaml-sql.injection.tmLanguage.json

  # Optional base template override (YAML or JSON)
  # basePath: grammars/base.tmLanguage.yaml

  # Command run when "Reload Now" is chosen outside an editor session
  # reloadCommand: code --reuse-window .
`
