package lab

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/Dicklesworthstone/labmux/internal/exitcode"
	"github.com/Dicklesworthstone/labmux/internal/tmux"
)

// Handoff is how the terminal is given to the session.
type Handoff string

const (
	HandoffAttach Handoff = "attach"
	HandoffSwitch Handoff = "switch"
)

// Switcher is the part of the tmux client the front-end uses.
type Switcher interface {
	SwitchClient(ctx context.Context, session string) error
	AttachCommand(session string) (string, []string, error)
}

// FrontEnd hands the terminal to the session.
type FrontEnd struct {
	Client  Switcher
	Socket  string
	Session string

	// Overridable for tests.
	CurrentSocket func() string
	Environ       func() []string
	Exec          func(argv0 string, argv, envv []string) error
}

// Mode reports whether the invoker is already a client of this socket.
func (f *FrontEnd) Mode() Handoff {
	current := tmux.CurrentSocket
	if f.CurrentSocket != nil {
		current = f.CurrentSocket
	}
	if tmux.SameSocket(current(), f.Socket) {
		return HandoffSwitch
	}
	return HandoffAttach
}

// Handoff switches or attaches. Attach replaces the process and only
// returns on failure. A failed switch carries switch-client's exit status.
func (f *FrontEnd) Handoff(ctx context.Context) error {
	if f.Mode() == HandoffSwitch {
		if err := f.Client.SwitchClient(ctx, f.Session); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
				return exitcode.Wrap(exitErr.ExitCode(), "switch-client failed", err)
			}
			return exitcode.Wrap(exitcode.ErrGeneral, "switch-client failed", err)
		}
		return nil
	}

	path, argv, err := f.Client.AttachCommand(f.Session)
	if err != nil {
		return exitcode.EnvironmentMissing("tmux", err)
	}
	environ := os.Environ
	if f.Environ != nil {
		environ = f.Environ
	}
	execFn := unix.Exec
	if f.Exec != nil {
		execFn = f.Exec
	}
	if err := execFn(path, argv, withoutTMUX(environ())); err != nil {
		return exitcode.Wrap(exitcode.ErrGeneral, "attach failed", err)
	}
	return nil
}

// withoutTMUX drops TMUX so attaching from inside another server nests
// instead of being refused.
func withoutTMUX(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, "TMUX=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
