// Package host abstracts the editor hosting the grammar: applying a grammar
// in place, reloading the window and prompting the user.
package host

import (
	"context"
	"errors"

	"github.com/jeeftor/yamlsql/internal/grammar"
)

// ErrHotSwapUnsupported is returned by hosts that can only pick up a new
// grammar on restart
var ErrHotSwapUnsupported = errors.New("host does not support grammar hot-swap")

// Severity of a user-facing message
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Message is a notification, optionally offering actions to pick from
type Message struct {
	Severity Severity
	Text     string
	Actions  []string
}

// Host is the editor side of a session
type Host interface {
	// ApplyGrammar asks the host to swap the active grammar without a restart
	ApplyGrammar(ctx context.Context, path string, doc *grammar.Document) error
	// Reload restarts the host window so persisted grammars are reloaded
	Reload(ctx context.Context) error
	// ShowMessage displays msg and returns the chosen action, or "" when
	// the message was dismissed or offered no actions
	ShowMessage(ctx context.Context, msg Message) (string, error)
}
