// Package watcher debounces configuration-change notifications into
// regeneration cycles.
//
// A Watcher is a two-state machine (Idle, PendingRegeneration) driven by an
// explicit event queue. Matching events cancel and replace the single debounce
// timer; when it fires, exactly one cycle runs against the configuration
// snapshot current at that moment. Stopping the watcher while a cycle is
// pending cancels the timer and no cycle runs.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/logging"
)

// ErrAlreadyRunning is returned by a second call to Run
var ErrAlreadyRunning = errors.New("watcher is already running")

// Source provides the configuration snapshot read when the timer fires
type Source interface {
	Snapshot() config.Settings
}

// RegenerateFunc runs one compile, assemble and reload cycle
type RegenerateFunc func(ctx context.Context, settings config.Settings)

// Options tune a Watcher. Zero values select the defaults.
type Options struct {
	// Namespace filters change events (default yamlSqlHighlight)
	Namespace string
	// Window overrides the debounce window; zero reads it from the snapshot
	Window time.Duration
	Clock  Clock
	// QueueSize is the event queue capacity
	QueueSize int
}

type messageKind int

const (
	msgChange messageKind = iota
	msgFire
	msgFlush
)

type message struct {
	kind       messageKind
	event      ChangeEvent
	generation uint64
}

// Watcher owns the debounce timer. All state transitions happen on the Run
// goroutine.
type Watcher struct {
	opts       Options
	source     Source
	regenerate RegenerateFunc

	inbox    chan message
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	state  atomic.Int32
	cycles atomic.Int64

	// owned by the Run goroutine
	timer      Timer
	generation uint64
}

// New creates a watcher; call Run to start processing events
func New(source Source, regenerate RegenerateFunc, opts Options) *Watcher {
	if opts.Namespace == "" {
		opts.Namespace = constants.Namespace
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Watcher{
		opts:       opts,
		source:     source,
		regenerate: regenerate,
		inbox:      make(chan message, opts.QueueSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// State returns the current state
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Cycles counts regeneration cycles started so far
func (w *Watcher) Cycles() int64 {
	return w.cycles.Load()
}

// Done is closed once Run has returned
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Notify enqueues a configuration-change event. It returns false once the
// watcher has stopped.
func (w *Watcher) Notify(e ChangeEvent) bool {
	return w.post(message{kind: msgChange, event: e})
}

// Flush requests an immediate cycle, cancelling any pending timer. It does
// not wait for the cycle to finish.
func (w *Watcher) Flush() bool {
	return w.post(message{kind: msgFlush})
}

// Stop ends Run. A pending regeneration is cancelled.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

func (w *Watcher) post(m message) bool {
	select {
	case <-w.quit:
		return false
	case <-w.done:
		return false
	default:
	}

	select {
	case w.inbox <- m:
		return true
	case <-w.quit:
		return false
	case <-w.done:
		return false
	}
}

// Run processes events until ctx is cancelled or Stop is called
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending("context cancelled")
			return ctx.Err()
		case <-w.quit:
			w.cancelPending("stopped")
			return nil
		case m := <-w.inbox:
			w.handle(ctx, m)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, m message) {
	switch m.kind {
	case msgChange:
		if !m.event.Affects(w.opts.Namespace) {
			logging.Debug("Ignoring unrelated configuration change", "keys", m.event.Keys)
			return
		}
		logging.ConfigChanged(m.event.Keys)
		w.schedule()

	case msgFire:
		if m.generation != w.generation || w.State() != PendingRegeneration {
			logging.Debug("Ignoring stale debounce timer",
				"generation", m.generation,
				"current", w.generation)
			return
		}
		w.timer = nil
		w.setState(Idle)
		w.cycle(ctx, "debounce")

	case msgFlush:
		w.stopTimer()
		w.setState(Idle)
		w.cycle(ctx, "manual")
	}
}

// schedule cancels the current timer and arms a fresh one
func (w *Watcher) schedule() {
	w.stopTimer()
	w.generation++
	gen := w.generation
	window := w.window()

	w.timer = w.opts.Clock.AfterFunc(window, func() {
		w.post(message{kind: msgFire, generation: gen})
	})
	w.setState(PendingRegeneration)

	logging.Debug("Debounce timer armed", "window", window, "generation", gen)
}

func (w *Watcher) window() time.Duration {
	if w.opts.Window > 0 {
		return constants.ClampDebounce(w.opts.Window)
	}
	return constants.ClampDebounce(w.source.Snapshot().Debounce)
}

func (w *Watcher) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) cancelPending(reason string) {
	if w.State() == PendingRegeneration {
		logging.Debug("Cancelled pending regeneration", "reason", reason)
	}
	w.stopTimer()
	w.setState(Idle)
}

func (w *Watcher) setState(s State) {
	w.state.Store(int32(s))
}

func (w *Watcher) cycle(ctx context.Context, trigger string) {
	settings := w.source.Snapshot()
	n := w.cycles.Add(1)
	logging.Debug("Starting regeneration cycle",
		"trigger", trigger,
		"cycle", n,
		"patterns", len(settings.KeyPatterns))

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Regeneration cycle panicked", "cycle", n, "error", fmt.Sprint(r))
		}
	}()
	w.regenerate(ctx, settings)
}
