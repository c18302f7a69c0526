package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/host"
	"github.com/jeeftor/yamlsql/internal/pattern"
)

type fakeHost struct {
	mu sync.Mutex

	applyErr  error
	answer    string
	promptErr error
	reloadErr error

	applied  []string
	messages []host.Message
	reloads  int
	// state observed while the prompt was open
	stateDuringPrompt State

	coordinator *Coordinator
}

func (f *fakeHost) ApplyGrammar(_ context.Context, path string, _ *grammar.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, path)
	return nil
}

func (f *fakeHost) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return f.reloadErr
}

func (f *fakeHost) ShowMessage(_ context.Context, msg host.Message) (string, error) {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	c := f.coordinator
	f.mu.Unlock()

	if len(msg.Actions) == 0 {
		return "", nil
	}
	if c != nil {
		f.mu.Lock()
		f.stateDuringPrompt = c.State()
		f.mu.Unlock()
	}
	return f.answer, f.promptErr
}

func (f *fakeHost) prompts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if len(m.Actions) > 0 {
			n++
		}
	}
	return n
}

func build(t *testing.T, patterns ...string) *grammar.Document {
	t.Helper()
	base, err := grammar.DefaultBase()
	require.NoError(t, err)
	doc, err := grammar.Assemble(base, pattern.Compile(patterns).Rules)
	require.NoError(t, err)
	return doc
}

func setup(t *testing.T, h *fakeHost) (*Coordinator, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "syntaxes", "yaml-sql.injection.tmLanguage.json")
	c := NewCoordinator(h, path)
	h.coordinator = c
	return c, path
}

func TestFirstApplyRequiresRestart(t *testing.T) {
	h := &fakeHost{answer: constants.ActionLater}
	c, path := setup(t, h)

	outcome, err := c.Apply(context.Background(), build(t, "query"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRestartRequired, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	loaded, err := grammar.ParseJSON(data)
	require.NoError(t, err)
	assert.Contains(t, loaded.Repository, "key-query")

	assert.Equal(t, 1, h.prompts())
	assert.True(t, h.stateDuringPrompt.RestartRequired)
	assert.False(t, c.State().RestartRequired, "state is cleared after the answer")
	assert.Equal(t, 0, h.reloads)
}

func TestUnchangedOutputIsSkipped(t *testing.T) {
	h := &fakeHost{answer: constants.ActionLater}
	c, path := setup(t, h)

	_, err := c.Apply(context.Background(), build(t, "query"))
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)

	outcome, err := c.Apply(context.Background(), build(t, "query"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, 1, h.prompts())

	again, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestUnchangedAgainstExistingFile(t *testing.T) {
	h := &fakeHost{}
	c, path := setup(t, h)

	doc := build(t, "query")
	data, err := doc.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))

	outcome, err := c.Apply(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Same(t, doc, c.LastApplied())
}

func TestScopeChangeTakesRestartPath(t *testing.T) {
	tests := []struct {
		name   string
		before []string
		after  []string
	}{
		{"pattern added", []string{"query"}, []string{"query", "sql_.*"}},
		{"pattern removed", []string{"query", "sql_.*"}, []string{"query"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHost{answer: constants.ActionLater}
			c, _ := setup(t, h)

			_, err := c.Apply(context.Background(), build(t, tt.before...))
			require.NoError(t, err)

			outcome, err := c.Apply(context.Background(), build(t, tt.after...))
			require.NoError(t, err)
			assert.Equal(t, OutcomeRestartRequired, outcome)
			assert.Empty(t, h.applied, "no hot-swap on scope change")
			assert.Equal(t, 2, h.prompts())
			assert.Contains(t, h.stateDuringPrompt.Reason, "scope")
		})
	}
}

func TestPatternOnlyEditHotSwaps(t *testing.T) {
	h := &fakeHost{answer: constants.ActionLater}
	c, path := setup(t, h)

	_, err := c.Apply(context.Background(), build(t, "query", "sql_.*"))
	require.NoError(t, err)

	// Same slug, different expression: same scope names
	outcome, err := c.Apply(context.Background(), build(t, "query", "sql_.+"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeHotSwapped, outcome)
	assert.Equal(t, []string{path}, h.applied)
	assert.Equal(t, 1, h.prompts())
	assert.False(t, c.State().RestartRequired)
}

func TestHotSwapFailureFallsBackToRestart(t *testing.T) {
	for _, applyErr := range []error{host.ErrHotSwapUnsupported, errors.New("grammar registry busy")} {
		t.Run(applyErr.Error(), func(t *testing.T) {
			h := &fakeHost{answer: constants.ActionLater}
			c, _ := setup(t, h)

			_, err := c.Apply(context.Background(), build(t, "query"))
			require.NoError(t, err)

			h.applyErr = applyErr
			outcome, err := c.Apply(context.Background(), build(t, "(query)"))
			require.NoError(t, err)
			assert.Equal(t, OutcomeRestartRequired, outcome)
			assert.Equal(t, 2, h.prompts())
			assert.Contains(t, h.stateDuringPrompt.Reason, "hot-swap")
		})
	}
}

func TestReloadNowReloadsHost(t *testing.T) {
	h := &fakeHost{answer: constants.ActionReloadNow}
	c, _ := setup(t, h)

	outcome, err := c.Apply(context.Background(), build(t, "query"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRestartRequired, outcome)
	assert.Equal(t, 1, h.reloads)
	assert.False(t, c.State().RestartRequired)
}

func TestPromptFailureKeepsRestartState(t *testing.T) {
	h := &fakeHost{promptErr: errors.New("no ui")}
	c, _ := setup(t, h)

	outcome, err := c.Apply(context.Background(), build(t, "query"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRestartRequired, outcome)
	assert.True(t, c.State().RestartRequired)
}

func TestPersistenceFailureKeepsPreviousGrammar(t *testing.T) {
	h := &fakeHost{answer: constants.ActionLater}
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	good := filepath.Join(dir, "grammar.json")
	c := NewCoordinator(h, good)
	h.coordinator = c
	first := build(t, "query")
	_, err := c.Apply(context.Background(), first)
	require.NoError(t, err)
	before, err := os.ReadFile(good)
	require.NoError(t, err)

	c.SetPath(filepath.Join(blocker, "grammar.json"))
	outcome, err := c.Apply(context.Background(), build(t, "query", "sql_.*"))

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Same(t, first, c.LastApplied())

	after, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	last := h.messages[len(h.messages)-1]
	assert.Equal(t, host.SeverityError, last.Severity)
	assert.Contains(t, last.Text, "previous one stays active")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "hot-swapped", OutcomeHotSwapped.String())
	assert.Equal(t, "restart-required", OutcomeRestartRequired.String())
}
