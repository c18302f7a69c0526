package watcher

import "strings"

// ChangeEvent is one configuration-change notification from the host
type ChangeEvent struct {
	// Keys are the fully qualified setting keys that changed
	Keys []string
}

// Affects reports whether any changed key is the namespace itself or lives
// under it. Comparison is case-insensitive because viper lowercases keys.
func (e ChangeEvent) Affects(namespace string) bool {
	ns := strings.ToLower(namespace)
	for _, key := range e.Keys {
		k := strings.ToLower(key)
		if k == ns || strings.HasPrefix(k, ns+".") {
			return true
		}
	}
	return false
}

// State of the debounce state machine
type State int32

const (
	Idle State = iota
	PendingRegeneration
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingRegeneration:
		return "pending-regeneration"
	default:
		return "unknown"
	}
}
