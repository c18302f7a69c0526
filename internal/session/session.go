// Package session ties the pipeline together for one editor activation:
// configuration changes are debounced by the watcher, compiled, assembled
// and handed to the reload coordinator.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/host"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/pattern"
	"github.com/jeeftor/yamlsql/internal/reload"
	"github.com/jeeftor/yamlsql/internal/watcher"
)

// Options configure a session
type Options struct {
	Source watcher.Source
	Host   host.Host
	Clock  watcher.Clock
	// Window overrides the debounce window from the settings
	Window time.Duration
	// SkipInitial disables the regeneration run on activation
	SkipInitial bool
	// OnCycle is called after every regeneration cycle
	OnCycle func(Report)
}

// Report summarizes one regeneration cycle
type Report struct {
	Outcome       reload.Outcome
	Rules         int
	PatternErrors []*pattern.InvalidPatternError
	Err           error
	At            time.Time
}

// Session is the state handle returned by Init. It holds the debounce
// watcher and, through the coordinator, the last applied grammar.
type Session struct {
	opts        Options
	coordinator *reload.Coordinator
	watcher     *watcher.Watcher

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	last     Report
	tornDown bool
}

// Init activates a session and starts its event loop
func Init(ctx context.Context, opts Options) (*Session, error) {
	if opts.Source == nil {
		return nil, errors.New("session needs a configuration source")
	}
	if opts.Host == nil {
		return nil, errors.New("session needs a host")
	}
	if opts.Clock == nil {
		opts.Clock = watcher.RealClock{}
	}

	s := &Session{
		opts:        opts,
		coordinator: reload.NewCoordinator(opts.Host, opts.Source.Snapshot().GrammarPath),
		done:        make(chan struct{}),
	}
	s.watcher = watcher.New(opts.Source, s.regenerate, watcher.Options{
		Clock:  opts.Clock,
		Window: opts.Window,
	})

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		if err := s.watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Watcher stopped", "error", err)
		}
	}()

	logging.Activated(constants.DisplayName)
	if !opts.SkipInitial {
		s.watcher.Flush()
	}
	return s, nil
}

// Notify forwards a configuration change to the watcher
func (s *Session) Notify(keys []string) bool {
	return s.watcher.Notify(watcher.ChangeEvent{Keys: keys})
}

// Regenerate runs a cycle now, cancelling any pending one
func (s *Session) Regenerate() bool {
	return s.watcher.Flush()
}

// State returns the watcher state
func (s *Session) State() watcher.State {
	return s.watcher.State()
}

// ReloadState returns the coordinator's restart flag
func (s *Session) ReloadState() reload.State {
	return s.coordinator.State()
}

// LastApplied returns the grammar last persisted in this session
func (s *Session) LastApplied() *grammar.Document {
	return s.coordinator.LastApplied()
}

// LastReport returns the result of the most recent cycle
func (s *Session) LastReport() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Done is closed when the event loop has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Teardown cancels any pending regeneration and stops the loop. In-flight
// work gets a short grace period and is then abandoned.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.tornDown = true
	s.mu.Unlock()

	s.watcher.Stop()
	s.cancel()

	select {
	case <-s.done:
	case <-time.After(constants.GetTimeout("shutdown")):
		logging.Warn("Abandoning in-flight regeneration")
	}
	logging.Deactivated(constants.DisplayName)
}

// Base loads the configured base template, or the embedded one
func Base(settings config.Settings) (*grammar.Document, error) {
	if settings.BasePath != "" {
		return grammar.LoadBase(settings.BasePath)
	}
	return grammar.DefaultBase()
}

// Build compiles settings into a grammar without persisting it
func Build(settings config.Settings) (*grammar.Document, pattern.Result, error) {
	result := pattern.Compile(settings.KeyPatterns)

	base, err := Base(settings)
	if err != nil {
		return nil, result, err
	}

	doc, err := grammar.Assemble(base, result.Rules)
	return doc, result, err
}

func (s *Session) regenerate(ctx context.Context, settings config.Settings) {
	logging.Regenerating(len(settings.KeyPatterns))
	report := Report{Outcome: reload.OutcomeFailed, At: s.opts.Clock.Now()}
	defer s.finish(&report)

	doc, result, err := Build(settings)
	report.PatternErrors = result.Errors
	report.Rules = len(result.Rules)

	for _, pe := range result.Errors {
		logging.SkippedPattern(pe.Index, pe.Pattern, pe.Err.Error())
	}
	if len(result.Errors) > 0 {
		s.show(ctx, host.SeverityWarning, patternWarning(result.Errors))
	}

	if err != nil {
		report.Err = err
		logging.Fail("Assemble grammar", err.Error())
		s.show(ctx, host.SeverityError,
			fmt.Sprintf("%s: grammar could not be rebuilt, the previous one stays active (%v)", constants.DisplayName, err))
		return
	}

	s.coordinator.SetPath(settings.GrammarPath)
	report.Outcome, report.Err = s.coordinator.Apply(ctx, doc)
}

func (s *Session) finish(report *Report) {
	s.mu.Lock()
	s.last = *report
	s.mu.Unlock()

	logging.Debug("Regeneration cycle finished",
		"outcome", report.Outcome.String(),
		"rules", report.Rules,
		"pattern_errors", len(report.PatternErrors))

	if s.opts.OnCycle != nil {
		s.opts.OnCycle(*report)
	}
}

func (s *Session) show(ctx context.Context, severity host.Severity, text string) {
	if _, err := s.opts.Host.ShowMessage(ctx, host.Message{Severity: severity, Text: text}); err != nil {
		logging.Debug("Could not show message", "error", err)
	}
}

func patternWarning(errs []*pattern.InvalidPatternError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = fmt.Sprintf("#%d %q", e.Index, e.Pattern)
	}
	return fmt.Sprintf("%s: skipped %d invalid key pattern(s): %s",
		constants.DisplayName, len(errs), strings.Join(parts, ", "))
}
