package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptKeyMap defines the keys understood by the action prompt
type PromptKeyMap struct {
	Left    key.Binding
	Right   key.Binding
	Confirm key.Binding
	Dismiss key.Binding
}

// DefaultPromptKeyMap returns the default key mappings
func DefaultPromptKeyMap() PromptKeyMap {
	return PromptKeyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h", "shift+tab"),
			key.WithHelp("←/h", "previous"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l", "tab"),
			key.WithHelp("→/l", "next"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "choose"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+c", "esc", "q"),
			key.WithHelp("esc/q", "dismiss"),
		),
	}
}

// KeyAction is what a key press means to the prompt
type KeyAction int

const (
	KeyActionNone KeyAction = iota
	KeyActionLeft
	KeyActionRight
	KeyActionConfirm
	KeyActionDismiss
)

func (ka KeyAction) String() string {
	switch ka {
	case KeyActionLeft:
		return "left"
	case KeyActionRight:
		return "right"
	case KeyActionConfirm:
		return "confirm"
	case KeyActionDismiss:
		return "dismiss"
	default:
		return "none"
	}
}

// KeyHandler maps key messages to prompt actions
type KeyHandler struct {
	keyMap PromptKeyMap
}

// NewKeyHandler creates a handler with the default key map
func NewKeyHandler() *KeyHandler {
	return &KeyHandler{keyMap: DefaultPromptKeyMap()}
}

// Handle returns the action bound to msg
func (kh *KeyHandler) Handle(msg tea.KeyMsg) KeyAction {
	switch {
	case key.Matches(msg, kh.keyMap.Dismiss):
		return KeyActionDismiss
	case key.Matches(msg, kh.keyMap.Left):
		return KeyActionLeft
	case key.Matches(msg, kh.keyMap.Right):
		return KeyActionRight
	case key.Matches(msg, kh.keyMap.Confirm):
		return KeyActionConfirm
	}
	return KeyActionNone
}

// Shortcut returns the index of the action whose first letter matches msg,
// or -1. "r" picks "Reload Now", "l" is taken by navigation.
func Shortcut(msg tea.KeyMsg, actions []string) int {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return -1
	}
	pressed := strings.ToLower(string(msg.Runes))
	for i, a := range actions {
		if a != "" && strings.ToLower(a[:1]) == pressed {
			return i
		}
	}
	return -1
}

// HelpText returns the key help shown under the prompt
func (kh *KeyHandler) HelpText() []string {
	bindings := []key.Binding{kh.keyMap.Left, kh.keyMap.Right, kh.keyMap.Confirm, kh.keyMap.Dismiss}
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, h.Key+" "+h.Desc)
	}
	return out
}
