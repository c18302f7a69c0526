package constants

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampDebounce(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero uses default", 0, DefaultDebounce},
		{"negative uses default", -time.Second, DefaultDebounce},
		{"too small", time.Millisecond, MinDebounce},
		{"too large", time.Hour, MaxDebounce},
		{"in range", 250 * time.Millisecond, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampDebounce(tt.in))
		})
	}
}

func TestGetTimeout(t *testing.T) {
	assert.Equal(t, HostCallTimeout, GetTimeout("apply"))
	assert.Equal(t, ReloadCommandTimeout, GetTimeout("reload"))
	assert.Equal(t, ShutdownGracePeriod, GetTimeout("shutdown"))
	assert.Equal(t, HostCallTimeout, GetTimeout("unknown"))
}
