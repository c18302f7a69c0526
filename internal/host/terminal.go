package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"golang.org/x/term"

	"github.com/jeeftor/yamlsql/internal/constants"
	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/tui"
)

// Terminal is the host used by `yamlsql watch`: prompts are shown in the
// terminal and "Reload Now" runs the configured reload command. A terminal
// cannot swap a running editor's grammar.
type Terminal struct {
	In            io.Reader
	Out           io.Writer
	ReloadCommand string
	// Interactive enables the prompt; otherwise prompts resolve to ""
	Interactive bool
}

// NewTerminal creates a host on stdin/stderr. Prompts are enabled only
// when both are terminals.
func NewTerminal(reloadCommand string) *Terminal {
	return &Terminal{
		In:            os.Stdin,
		Out:           os.Stderr,
		ReloadCommand: reloadCommand,
		Interactive:   IsTerminal(os.Stdin) && IsTerminal(os.Stderr),
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (t *Terminal) ApplyGrammar(ctx context.Context, path string, doc *grammar.Document) error {
	return ErrHotSwapUnsupported
}

// Reload runs the reload command through the shell. Without one the user is
// told to reload by hand.
func (t *Terminal) Reload(ctx context.Context) error {
	if t.ReloadCommand == "" {
		logging.UserInfo("Reload your editor window to pick up the new grammar")
		return nil
	}

	shell, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd", "/C"
	}

	return logging.LogOperation("reload", t.ReloadCommand, func() error {
		cmd := exec.CommandContext(ctx, shell, flag, t.ReloadCommand)
		cmd.Stdout = t.Out
		cmd.Stderr = t.Out
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("reload command %q failed: %w", t.ReloadCommand, err)
		}
		return nil
	})
}

func (t *Terminal) ShowMessage(ctx context.Context, msg Message) (string, error) {
	if len(msg.Actions) == 0 || !t.Interactive {
		switch msg.Severity {
		case SeverityError:
			logging.UserErrorf("%s", msg.Text)
		case SeverityWarning:
			logging.UserWarnf("%s", msg.Text)
		default:
			logging.UserInfof("%s", msg.Text)
		}
		if len(msg.Actions) > 0 {
			logging.Debug("Non-interactive session, prompt left unanswered", "actions", msg.Actions)
		}
		return "", nil
	}

	return tui.RunPrompt(ctx, t.In, t.Out, constants.DisplayName, msg.Text, msg.Actions)
}
