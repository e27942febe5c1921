package lab

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/labmux/internal/tmux"
)

// BannerPrefix starts every banner line; the first line of a banner is
// BannerPrefix + "start <slot> <timestamp>".
const BannerPrefix = "[labmux] "

// Both scripts are constants. Everything variable reaches them as
// positional parameters, so nothing is ever quoted.
const (
	bannerScript = `printf "%s\n" "$1"; shift; exec "$@"`
	execScript   = `exec "$@"`
)

// bannerVars are echoed in the banner in this order.
var bannerVars = []string{"VIRTUAL_ENV", "PYTHONPATH", "LAB_SCRATCH"}

// Launcher binds commands to slot panes.
type Launcher struct {
	Mux     Mux
	Session string
	Banner  bool
	Clock   Clock

	Getenv   func(string) string
	LookPath func(string) (string, error)
}

// Launch kills whatever runs in the slot's pane and starts the slot's
// command there, keeping the pane open after the command exits. It returns
// the start time printed in the banner.
func (l *Launcher) Launch(ctx context.Context, s Slot) (time.Time, error) {
	if len(s.Argv) == 0 {
		return time.Time{}, fmt.Errorf("slot %s: no command", s.Name)
	}
	target := tmux.Target(l.Session, s.Name)
	if err := l.Mux.SetWindowOption(ctx, target, "remain-on-exit", "on"); err != nil {
		return time.Time{}, fmt.Errorf("slot %s: %w", s.Name, err)
	}

	started := l.clock().Now()
	argv := ExecArgv(s.Argv)
	if l.Banner {
		argv = BannerArgv(l.banner(s, started), s.Argv)
	}
	if err := l.Mux.RespawnPane(ctx, target, s.Dir, argv); err != nil {
		return time.Time{}, fmt.Errorf("slot %s: %w", s.Name, err)
	}
	return started, nil
}

// BannerArgv prints banner and then execs cmd in place of the shell.
func BannerArgv(banner string, cmd []string) []string {
	argv := []string{"/bin/sh", "-c", bannerScript, "labmux-banner", banner}
	return append(argv, cmd...)
}

// ExecArgv runs cmd through a constant exec wrapper. The argv always has
// several elements, so tmux executes it directly instead of handing a
// single string to the default shell.
func ExecArgv(cmd []string) []string {
	argv := []string{"/bin/sh", "-c", execScript, "labmux"}
	return append(argv, cmd...)
}

func (l *Launcher) banner(s Slot, started time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sstart %s %s\n", BannerPrefix, s.Name, started.Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "%s  interpreter: %s\n", BannerPrefix, l.interpreter())
	for _, name := range bannerVars {
		fmt.Fprintf(&b, "%s  %s=%s\n", BannerPrefix, name, l.getenv(name))
	}
	fmt.Fprintf(&b, "%s  exec: %s", BannerPrefix, FormatArgv(s.Argv))
	return b.String()
}

// interpreter resolves the python the workers will pick up: the active venv,
// then the lab venv, then whatever is first on PATH.
func (l *Launcher) interpreter() string {
	for _, name := range []string{"VIRTUAL_ENV", "LAB_VENV"} {
		if dir := l.getenv(name); dir != "" {
			return filepath.Join(dir, "bin", "python")
		}
	}
	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if p, err := lookPath("python3"); err == nil {
		return p
	}
	return "(none)"
}

// FormatArgv renders argv for display, quoting elements that would be
// ambiguous when space-joined.
func FormatArgv(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$`") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}

func (l *Launcher) getenv(name string) string {
	if l.Getenv != nil {
		return l.Getenv(name)
	}
	return os.Getenv(name)
}

func (l *Launcher) clock() Clock {
	if l.Clock != nil {
		return l.Clock
	}
	return RealClock{}
}
