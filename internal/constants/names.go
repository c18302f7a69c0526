package constants

// Configuration namespace and keys as seen by the editor
const (
	Namespace      = "yamlSqlHighlight"
	KeyPatternsKey = Namespace + ".keyPatterns"
	DebounceKey    = Namespace + ".debounce"
	GrammarPathKey = Namespace + ".grammarPath"
	BasePathKey    = Namespace + ".basePath"
	ReloadCmdKey   = Namespace + ".reloadCommand"
	LogLevelKey    = "log_level"
)

// Grammar identity
const (
	DisplayName       = "YAML SQL Highlighting"
	InjectionScope    = "yaml-sql.injection"
	InjectionSelector = "L:source.yaml -comment"
	EmbeddedSQLScope  = "source.sql"
	DefaultGrammarOut = "syntaxes/yaml-sql.injection.tmLanguage.json"
)

// Prompt actions
const (
	ActionReloadNow = "Reload Now"
	ActionLater     = "Later"
)

// EnvPrefix is the environment variable prefix (YAMLSQL_LOG_LEVEL, ...)
const EnvPrefix = "YAMLSQL"
