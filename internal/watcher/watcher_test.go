package watcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

var patternsChanged = ChangeEvent{Keys: []string{constants.KeyPatternsKey}}

type fakeSource struct {
	mu       sync.Mutex
	settings config.Settings
}

func (f *fakeSource) set(patterns ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.KeyPatterns = patterns
}

func (f *fakeSource) Snapshot() config.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings.Clone()
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) regenerate(_ context.Context, s config.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s.KeyPatterns)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) call(i int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

type harness struct {
	w      *Watcher
	clock  *ManualClock
	source *fakeSource
	rec    *recorder
	cancel context.CancelFunc
	result chan error
}

func start(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		clock:  NewManualClock(),
		source: &fakeSource{settings: config.Settings{Debounce: 500 * time.Millisecond}},
		rec:    &recorder{},
		result: make(chan error, 1),
	}
	opts.Clock = h.clock
	h.w = New(h.source, h.rec.regenerate, opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.result <- h.w.Run(ctx) }()

	t.Cleanup(func() {
		h.w.Stop()
		cancel()
		<-h.w.Done()
	})
	return h
}

// notify sends an event and waits until the loop has armed a timer for it
func (h *harness) notify(t *testing.T, armed int) {
	t.Helper()
	require.True(t, h.w.Notify(patternsChanged))
	require.Eventually(t, func() bool { return h.clock.Created() == armed }, waitFor, tick)
}

func TestDebounceCoalescesBurst(t *testing.T) {
	h := start(t, Options{})

	for i := 0; i < 5; i++ {
		h.source.set(fmt.Sprintf("p%d", i))
		h.notify(t, i+1)
		h.clock.Advance(50 * time.Millisecond)
	}
	assert.Equal(t, PendingRegeneration, h.w.State())
	assert.Equal(t, 1, h.clock.Pending())

	// Changed after the last event but before the timer fires
	h.source.set("final")
	h.clock.Advance(500 * time.Millisecond)

	require.Eventually(t, func() bool { return h.rec.count() == 1 }, waitFor, tick)
	assert.Equal(t, []string{"final"}, h.rec.call(0))
	assert.Never(t, func() bool { return h.rec.count() > 1 }, 50*time.Millisecond, tick)
	assert.Equal(t, Idle, h.w.State())
}

func TestTwoRapidEditsProduceOneCycle(t *testing.T) {
	h := start(t, Options{Window: 500 * time.Millisecond})

	h.source.set("query")
	h.notify(t, 1)

	h.clock.Advance(100 * time.Millisecond)
	h.source.set("query", "sql_.*")
	h.notify(t, 2)

	h.clock.Advance(499 * time.Millisecond)
	assert.Equal(t, 0, h.rec.count())

	h.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return h.rec.count() == 1 }, waitFor, tick)
	assert.Equal(t, []string{"query", "sql_.*"}, h.rec.call(0))
	assert.EqualValues(t, 1, h.w.Cycles())
}

func TestStopCancelsPendingRegeneration(t *testing.T) {
	h := start(t, Options{})

	h.notify(t, 1)
	require.Equal(t, PendingRegeneration, h.w.State())

	h.w.Stop()
	<-h.w.Done()
	assert.NoError(t, <-h.result)

	assert.Equal(t, Idle, h.w.State())
	assert.Equal(t, 0, h.clock.Pending())

	h.clock.Advance(time.Second)
	assert.Equal(t, 0, h.rec.count())
	assert.False(t, h.w.Notify(patternsChanged))
}

func TestContextCancelCancelsPendingRegeneration(t *testing.T) {
	h := start(t, Options{})

	h.notify(t, 1)
	h.cancel()
	<-h.w.Done()
	assert.ErrorIs(t, <-h.result, context.Canceled)

	h.clock.Advance(time.Second)
	assert.Equal(t, 0, h.rec.count())
}

func TestUnrelatedChangesAreIgnored(t *testing.T) {
	h := start(t, Options{})

	require.True(t, h.w.Notify(ChangeEvent{Keys: []string{"editor.fontSize", "yamlSqlHighlightX.foo"}}))
	assert.Never(t, func() bool { return h.clock.Created() > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, Idle, h.w.State())
}

func TestWindowFollowsSnapshot(t *testing.T) {
	h := start(t, Options{})
	h.source.mu.Lock()
	h.source.settings.Debounce = 200 * time.Millisecond
	h.source.mu.Unlock()

	h.notify(t, 1)
	h.clock.Advance(199 * time.Millisecond)
	assert.Equal(t, 0, h.rec.count())

	h.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return h.rec.count() == 1 }, waitFor, tick)
}

func TestFlushRunsImmediately(t *testing.T) {
	h := start(t, Options{})

	h.notify(t, 1)
	require.True(t, h.w.Flush())

	require.Eventually(t, func() bool { return h.rec.count() == 1 }, waitFor, tick)
	assert.Equal(t, Idle, h.w.State())
	assert.Equal(t, 0, h.clock.Pending())

	h.clock.Advance(time.Second)
	assert.Never(t, func() bool { return h.rec.count() > 1 }, 50*time.Millisecond, tick)
}

func TestStaleFireIsIgnored(t *testing.T) {
	h := start(t, Options{})

	h.notify(t, 1)
	h.notify(t, 2)

	// A fire from the first, replaced timer
	require.True(t, h.w.post(message{kind: msgFire, generation: 1}))
	assert.Never(t, func() bool { return h.rec.count() > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, PendingRegeneration, h.w.State())
}

func TestPanicDoesNotStopTheLoop(t *testing.T) {
	clock := NewManualClock()
	var calls int
	var mu sync.Mutex
	w := New(&fakeSource{}, func(context.Context, config.Settings) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			panic("boom")
		}
	}, Options{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Flush()
	w.Flush()
	require.Eventually(t, func() bool { return w.Cycles() == 2 }, waitFor, tick)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, waitFor, tick)
}

func TestRunTwice(t *testing.T) {
	h := start(t, Options{})
	require.Eventually(t, func() bool { return h.w.running.Load() }, waitFor, tick)
	assert.ErrorIs(t, h.w.Run(context.Background()), ErrAlreadyRunning)
}

func TestChangeEventAffects(t *testing.T) {
	tests := []struct {
		keys []string
		want bool
	}{
		{[]string{"yamlSqlHighlight"}, true},
		{[]string{"yamlSqlHighlight.keyPatterns"}, true},
		{[]string{"yamlsqlhighlight.keypatterns"}, true},
		{[]string{"editor.tabSize", "yamlSqlHighlight.debounce"}, true},
		{[]string{"yamlSqlHighlightExtra"}, false},
		{[]string{"editor.tabSize"}, false},
		{nil, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.keys), func(t *testing.T) {
			assert.Equal(t, tt.want, ChangeEvent{Keys: tt.keys}.Affects(constants.Namespace))
		})
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	var fired []string
	c.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })
	c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(15*time.Millisecond, func() { fired = append(fired, "x") })

	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())
	assert.Equal(t, 2, c.Pending())

	c.Advance(30 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, 3, c.Created())
}
