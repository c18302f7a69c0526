package resource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsCleanupsInReverse(t *testing.T) {
	cm := NewContextManagerFrom(context.Background())

	var order []string
	cm.AddCleanupFunc("first", func() error { order = append(order, "first"); return nil })
	cm.AddCleanupFunc("second", func() error { order = append(order, "second"); return nil })

	require.True(t, cm.IsActive())
	require.NoError(t, cm.Shutdown())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.False(t, cm.IsActive())
	assert.ErrorIs(t, cm.GetContext().Err(), context.Canceled)

	// Second call is a no-op
	require.NoError(t, cm.Shutdown())
	assert.Len(t, order, 2)
}

func TestShutdownCollectsErrors(t *testing.T) {
	cm := NewContextManagerFrom(context.Background())
	boom := errors.New("boom")
	cm.AddCleanupFunc("session", func() error { return boom })
	cm.AddCleanupFunc("ok", func() error { return nil })

	err := cm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "session")
}

func TestShutdownTimesOut(t *testing.T) {
	cm := NewContextManagerFrom(context.Background())
	cm.SetCleanupTimeout(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	cm.AddCleanupFunc("stuck", func() error { <-release; return nil })

	err := cm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cm := NewContextManagerFrom(parent)
	cancel()
	assert.False(t, cm.IsActive())

	ctx, stop := cm.WithTimeout(time.Second)
	defer stop()
	assert.Error(t, ctx.Err())
}
