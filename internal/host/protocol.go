package host

import "encoding/json"

// RPCMessage represents a JSON-RPC 2.0 message
type RPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *RPCError        `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidParams  = -32602
	CodeMethodNotFound = -32601
)

// Methods handled or sent by the RPC host
const (
	MethodInitialize         = "initialize"
	MethodInitialized        = "initialized"
	MethodDidChangeConfig    = "workspace/didChangeConfiguration"
	MethodRegenerate         = "yamlsql/regenerate"
	MethodShutdown           = "shutdown"
	MethodExit               = "exit"
	MethodShowMessage        = "window/showMessage"
	MethodShowMessageRequest = "window/showMessageRequest"
	MethodApplyGrammar       = "yamlsql/applyGrammar"
	MethodReloadWindow       = "yamlsql/reloadWindow"
)

// InitializeParams is sent by the editor when the session starts
type InitializeParams struct {
	ProcessID             *int                  `json:"processId,omitempty"`
	RootURI               string                `json:"rootUri,omitempty"`
	InitializationOptions InitializationOptions `json:"initializationOptions"`
}

// InitializationOptions carries extension-specific startup data
type InitializationOptions struct {
	// Settings holds the initial yamlSqlHighlight configuration
	Settings map[string]any `json:"settings,omitempty"`
	// HotSwap is true when the editor implements yamlsql/applyGrammar
	HotSwap bool `json:"hotSwap,omitempty"`
}

// InitializeResult is the reply to initialize
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

// ServerCapabilities advertises optional features
type ServerCapabilities struct {
	Regenerate bool `json:"regenerate"`
}

// ServerInfo names the server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// DidChangeConfigurationParams carries the changed settings
type DidChangeConfigurationParams struct {
	Settings map[string]any `json:"settings"`
}

// MessageType indicates the type of a message
type MessageType int

const (
	MessageTypeError   MessageType = 1
	MessageTypeWarning MessageType = 2
	MessageTypeInfo    MessageType = 3
)

// ShowMessageParams is a plain notification
type ShowMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ShowMessageRequestParams asks the user to pick an action
type ShowMessageRequestParams struct {
	Type    MessageType         `json:"type"`
	Message string              `json:"message"`
	Actions []MessageActionItem `json:"actions"`
}

// MessageActionItem is one button of a message request
type MessageActionItem struct {
	Title string `json:"title"`
}

// ApplyGrammarParams asks the editor to swap in the grammar at Path
type ApplyGrammarParams struct {
	Path      string `json:"path"`
	ScopeName string `json:"scopeName"`
}

// ApplyGrammarResult reports whether the swap happened
type ApplyGrammarResult struct {
	Applied bool `json:"applied"`
}

func messageType(s Severity) MessageType {
	switch s {
	case SeverityError:
		return MessageTypeError
	case SeverityWarning:
		return MessageTypeWarning
	default:
		return MessageTypeInfo
	}
}
