// Package resource owns the process-wide context and the cleanup hooks that
// run when a long-lived command shuts down.
package resource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/logging"
)

type cleanup struct {
	name string
	fn   func() error
}

// ContextManager manages the root context and resource cleanup
type ContextManager struct {
	rootContext    context.Context
	cancelFunc     context.CancelFunc
	cleanupTimeout time.Duration

	mu       sync.Mutex
	cleanups []cleanup
	done     bool
	stop     context.CancelFunc
}

// NewContextManager creates a context manager whose root context is
// cancelled on SIGINT, SIGTERM or SIGQUIT
func NewContextManager() *ContextManager {
	cm := newContextManager(context.Background())
	cm.setupSignalHandling()
	return cm
}

// NewContextManagerFrom derives the root context from parent without
// installing signal handlers
func NewContextManagerFrom(parent context.Context) *ContextManager {
	return newContextManager(parent)
}

func newContextManager(parent context.Context) *ContextManager {
	rootCtx, cancel := context.WithCancel(parent)
	return &ContextManager{
		rootContext:    rootCtx,
		cancelFunc:     cancel,
		cleanupTimeout: constants.GetTimeout("shutdown") * 5,
	}
}

// GetContext returns the root context for operations
func (cm *ContextManager) GetContext() context.Context {
	return cm.rootContext
}

// WithTimeout creates a context with timeout
func (cm *ContextManager) WithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cm.rootContext, timeout)
}

// AddCleanupFunc registers fn to run on Shutdown. Cleanups run in reverse
// registration order.
func (cm *ContextManager) AddCleanupFunc(name string, fn func() error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cleanups = append(cm.cleanups, cleanup{name: name, fn: fn})
}

// SetCleanupTimeout sets the timeout for cleanup operations
func (cm *ContextManager) SetCleanupTimeout(timeout time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cleanupTimeout = timeout
}

// setupSignalHandling cancels the root context on the first signal. The
// command owning the context then returns and calls Shutdown.
func (cm *ContextManager) setupSignalHandling() {
	ctx, stop := signal.NotifyContext(cm.rootContext, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	cm.stop = stop

	go func() {
		<-ctx.Done()
		if cm.rootContext.Err() == nil {
			logging.Info("Received shutdown signal, initiating graceful shutdown")
		}
		cm.cancelFunc()
	}()
}

// IsActive returns whether the root context is still live
func (cm *ContextManager) IsActive() bool {
	select {
	case <-cm.rootContext.Done():
		return false
	default:
		return true
	}
}

// Shutdown cancels the root context and runs every cleanup once. Cleanups
// still running after the cleanup timeout are abandoned.
func (cm *ContextManager) Shutdown() error {
	cm.mu.Lock()
	if cm.done {
		cm.mu.Unlock()
		return nil
	}
	cm.done = true
	cleanups := make([]cleanup, len(cm.cleanups))
	copy(cleanups, cm.cleanups)
	timeout := cm.cleanupTimeout
	cm.mu.Unlock()

	cm.cancelFunc()
	if cm.stop != nil {
		cm.stop()
	}

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			c := cleanups[i]
			if err := c.fn(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			logging.Error("Resource cleanup completed with errors", "error", err)
			return err
		}
		logging.Debug("Resource cleanup completed", "cleanups", len(cleanups))
		return nil
	case <-time.After(timeout):
		logging.Warn("Resource cleanup timed out", "timeout", timeout)
		return fmt.Errorf("cleanup timed out after %s", timeout)
	}
}
