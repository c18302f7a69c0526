package constants

import "time"

// Default timings used throughout the application
const (
	// Debounce window for configuration edits
	DefaultDebounce = 500 * time.Millisecond
	MinDebounce     = 10 * time.Millisecond
	MaxDebounce     = 30 * time.Second

	// Host round trips (apply grammar, prompt)
	HostCallTimeout = 10 * time.Second

	// Time allowed for a reload command to finish
	ReloadCommandTimeout = 30 * time.Second

	// Teardown grace period before in-flight work is abandoned
	ShutdownGracePeriod = 2 * time.Second
)

// GetTimeout returns a timeout duration based on the operation type
func GetTimeout(operation string) time.Duration {
	switch operation {
	case "host", "apply":
		return HostCallTimeout
	case "reload":
		return ReloadCommandTimeout
	case "shutdown":
		return ShutdownGracePeriod
	default:
		return HostCallTimeout
	}
}

// ClampDebounce keeps a configured debounce window within sane bounds
func ClampDebounce(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultDebounce
	case d < MinDebounce:
		return MinDebounce
	case d > MaxDebounce:
		return MaxDebounce
	default:
		return d
	}
}
