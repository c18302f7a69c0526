package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptModel asks the user to pick one of a few actions
type PromptModel struct {
	Title    string
	Text     string
	Actions  []string
	Selected int

	keys     *KeyHandler
	chosen   string
	finished bool
	width    int
}

// NewPrompt creates a prompt with the first action selected
func NewPrompt(title, text string, actions []string) PromptModel {
	return PromptModel{
		Title:   title,
		Text:    text,
		Actions: actions,
		keys:    NewKeyHandler(),
		width:   80,
	}
}

// Chosen returns the picked action, or "" if the prompt was dismissed
func (m PromptModel) Chosen() string {
	return m.chosen
}

// Finished reports whether the user answered or dismissed the prompt
func (m PromptModel) Finished() bool {
	return m.finished
}

func (m PromptModel) Init() tea.Cmd {
	return nil
}

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.keys.Handle(msg) {
		case KeyActionDismiss:
			m.finished = true
			return m, tea.Quit
		case KeyActionLeft:
			if m.Selected > 0 {
				m.Selected--
			}
			return m, nil
		case KeyActionRight:
			if m.Selected < len(m.Actions)-1 {
				m.Selected++
			}
			return m, nil
		case KeyActionConfirm:
			if len(m.Actions) > 0 {
				m.chosen = m.Actions[m.Selected]
			}
			m.finished = true
			return m, tea.Quit
		}

		if i := Shortcut(msg, m.Actions); i >= 0 {
			m.Selected = i
			m.chosen = m.Actions[i]
			m.finished = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m PromptModel) View() string {
	if m.finished {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.Title))
	b.WriteString("\n\n")
	b.WriteString(m.Text)
	b.WriteString("\n\n")

	buttons := make([]string, len(m.Actions))
	for i, a := range m.Actions {
		if i == m.Selected {
			buttons[i] = SelectedButtonStyle.Render(a)
		} else {
			buttons[i] = ButtonStyle.Render(a)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	b.WriteString("\n\n")
	b.WriteString(MutedStyle.Render(strings.Join(m.keys.HelpText(), " • ")))

	width := m.width - 4
	if width > 72 {
		width = 72
	}
	return BoxStyle.Width(width).Render(b.String()) + "\n"
}

// RunPrompt shows the prompt on out, reading keys from in, and returns the
// chosen action. A dismissed prompt returns "".
func RunPrompt(ctx context.Context, in io.Reader, out io.Writer, title, text string, actions []string) (string, error) {
	p := tea.NewProgram(NewPrompt(title, text, actions),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	m, ok := final.(PromptModel)
	if !ok {
		return "", fmt.Errorf("unexpected prompt model %T", final)
	}
	return m.Chosen(), nil
}
