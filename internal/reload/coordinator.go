// Package reload persists assembled grammars and gets the host to use them,
// either by hot-swapping or by prompting for a window reload.
package reload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/filesystem"
	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/host"
	"github.com/jeeftor/yamlsql/internal/logging"
)

// Coordinator owns the persisted grammar file and the ReloadState
type Coordinator struct {
	host host.Host
	now  func() time.Time

	mu       sync.Mutex
	path     string
	last     *grammar.Document
	lastData []byte
	state    State
}

// NewCoordinator writes grammars to path and talks to h
func NewCoordinator(h host.Host, path string) *Coordinator {
	return &Coordinator{host: h, path: path, now: time.Now}
}

// Path returns the grammar file location
func (c *Coordinator) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// SetPath moves the output location. The next Apply compares against
// whatever is already at the new path.
func (c *Coordinator) SetPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == c.path {
		return
	}
	c.path = path
	c.lastData = nil
}

// State returns the current ReloadState
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastApplied returns the last grammar persisted by this coordinator
func (c *Coordinator) LastApplied() *grammar.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Apply persists doc and makes the host use it. A changed scope-name set
// always takes the restart path; otherwise a hot-swap is attempted and any
// failure falls back to the restart path. On a *PersistenceError nothing
// changes on disk and the previous grammar stays in effect.
func (c *Coordinator) Apply(ctx context.Context, doc *grammar.Document) (Outcome, error) {
	data, err := doc.Marshal()
	if err != nil {
		return OutcomeFailed, err
	}

	c.mu.Lock()
	path := c.path
	prev, prevData := c.last, c.lastData
	c.mu.Unlock()

	if prevData == nil {
		prev, prevData = c.onDisk(path)
	}
	if bytes.Equal(prevData, data) {
		logging.Unchanged(path)
		c.remember(doc, data)
		return OutcomeUnchanged, nil
	}

	if err := c.persist(path, data); err != nil {
		perr := &PersistenceError{Path: path, Err: err}
		logging.Fail("Save grammar", err.Error())
		c.notify(ctx, host.Message{
			Severity: host.SeverityError,
			Text:     fmt.Sprintf("%s: could not save the grammar, the previous one stays active (%v)", constants.DisplayName, err),
		})
		return OutcomeFailed, perr
	}
	logging.SaveFile(path, fmt.Sprintf("%d rules", len(doc.Patterns)))
	c.remember(doc, data)

	added, removed := grammar.ScopeDiff(prev, doc)
	if len(added) > 0 || len(removed) > 0 {
		logging.Debug("Scope names changed", "added", added, "removed", removed)
		return c.restart(ctx, scopeReason(added, removed)), nil
	}

	applyCtx, cancel := context.WithTimeout(ctx, constants.GetTimeout("apply"))
	defer cancel()
	if err := c.host.ApplyGrammar(applyCtx, path, doc); err != nil {
		if errors.Is(err, host.ErrHotSwapUnsupported) {
			logging.Debug("Host cannot hot-swap", "path", path)
		} else {
			logging.Warn("Hot-swap failed", "path", path, "error", err)
		}
		return c.restart(ctx, "hot-swap unavailable: "+err.Error()), nil
	}

	logging.HotSwapped(doc.ScopeName)
	return OutcomeHotSwapped, nil
}

func (c *Coordinator) onDisk(path string) (*grammar.Document, []byte) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	doc, err := grammar.ParseJSON(data)
	if err != nil {
		logging.Debug("Existing grammar file is not valid JSON", "path", path, "error", err)
		return nil, data
	}
	return doc, data
}

func (c *Coordinator) persist(path string, data []byte) error {
	if err := filesystem.EnsureDirectoryForFile(path); err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(path, data, 0644)
}

func (c *Coordinator) remember(doc *grammar.Document, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = doc
	c.lastData = data
}

// restart records the pending restart, prompts the user and clears the
// state once they answer
func (c *Coordinator) restart(ctx context.Context, reason string) Outcome {
	c.mu.Lock()
	c.state = State{RestartRequired: true, Reason: reason, Since: c.now()}
	c.mu.Unlock()
	logging.RestartRequired(reason)

	answer, err := c.host.ShowMessage(ctx, host.Message{
		Severity: host.SeverityInfo,
		Text:     constants.DisplayName + ": key patterns changed. Reload the window to apply the new grammar.",
		Actions:  []string{constants.ActionReloadNow, constants.ActionLater},
	})
	if err != nil {
		logging.Warn("Reload prompt failed", "error", err)
		return OutcomeRestartRequired
	}

	if answer == constants.ActionReloadNow {
		reloadCtx, cancel := context.WithTimeout(ctx, constants.GetTimeout("reload"))
		defer cancel()
		if err := c.host.Reload(reloadCtx); err != nil {
			logging.Warn("Reload failed", "error", err)
			c.notify(ctx, host.Message{
				Severity: host.SeverityError,
				Text:     fmt.Sprintf("%s: reload failed (%v)", constants.DisplayName, err),
			})
		}
	} else {
		logging.Debug("Reload postponed", "answer", answer)
	}

	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
	return OutcomeRestartRequired
}

func (c *Coordinator) notify(ctx context.Context, msg host.Message) {
	if _, err := c.host.ShowMessage(ctx, msg); err != nil {
		logging.Debug("Could not show message", "error", err)
	}
}

func scopeReason(added, removed []string) string {
	var parts []string
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("%d scope(s) added", len(added)))
	}
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d scope(s) removed", len(removed)))
	}
	return strings.Join(parts, ", ")
}
