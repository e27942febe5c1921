package tmux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Target returns an exact-match target for a window (or its active pane).
// The "=" prefixes stop tmux from falling back to prefix matching, so
// "master" never resolves to "master2".
func Target(session, window string) string {
	if window == "" {
		return "=" + session
	}
	return "=" + session + ":=" + window
}

// ListSessions returns all session names on the server. Unlike HasSession
// it reports ErrNoServer, which callers use as a liveness probe.
func (c *Client) ListSessions(ctx context.Context) ([]string, error) {
	out, err := c.RunContext(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// HasSession checks if a session exists (exact match).
func (c *Client) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := c.RunContext(ctx, "has-session", "-t", Target(name, ""))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewSession creates a detached session whose first window is named window.
// A zero width or height leaves sizing to tmux.
func (c *Client) NewSession(ctx context.Context, name, window, dir string, width, height int) error {
	args := []string{"new-session", "-d", "-s", name}
	if window != "" {
		args = append(args, "-n", window)
	}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	if width > 0 && height > 0 {
		args = append(args, "-x", strconv.Itoa(width), "-y", strconv.Itoa(height))
	}
	return c.RunSilentContext(ctx, args...)
}

// ListWindows returns the window names of a session in index order.
func (c *Client) ListWindows(ctx context.Context, session string) ([]string, error) {
	out, err := c.RunContext(ctx, "list-windows", "-t", Target(session, ""), "-F", "#{window_name}")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// NewWindow appends a detached window to the session.
func (c *Client) NewWindow(ctx context.Context, session, window, dir string) error {
	args := []string{"new-window", "-d", "-t", Target(session, "") + ":", "-n", window}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	return c.RunSilentContext(ctx, args...)
}

// SetGlobalEnvironment sets a variable in the server's global environment.
// Processes started afterwards in any window inherit it.
func (c *Client) SetGlobalEnvironment(ctx context.Context, key, value string) error {
	return c.RunSilentContext(ctx, "set-environment", "-g", key, value)
}

// SetWindowOption sets a window option on target.
func (c *Client) SetWindowOption(ctx context.Context, target, option, value string) error {
	return c.RunSilentContext(ctx, "set-option", "-w", "-t", target, option, value)
}

// RespawnPane kills whatever runs in the pane and starts argv in its place.
// argv is handed to tmux as separate arguments; with more than one element
// tmux execs it directly instead of going through a shell.
func (c *Client) RespawnPane(ctx context.Context, target, dir string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("respawn-pane: empty command")
	}
	args := []string{"respawn-pane", "-k", "-t", target}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	args = append(args, argv...)
	return c.RunSilentContext(ctx, args...)
}

// CapturePane captures the last lines of a pane's history and visible area.
func (c *Client) CapturePane(ctx context.Context, target string, lines int) (string, error) {
	return c.RunContext(ctx, "capture-pane", "-p", "-J", "-t", target, "-S", fmt.Sprintf("-%d", lines))
}

// SwitchClient moves the calling client to session.
func (c *Client) SwitchClient(ctx context.Context, session string) error {
	return c.RunSilentContext(ctx, "switch-client", "-t", Target(session, ""))
}

// AttachCommand returns the executable path and argv for attaching to
// session, ready for exec.
func (c *Client) AttachCommand(session string) (string, []string, error) {
	path, err := exec.LookPath(c.binary())
	if err != nil {
		return "", nil, fmt.Errorf("tmux is not installed: %w", err)
	}
	argv := append([]string{c.binary()}, c.Args("attach-session", "-t", Target(session, ""))...)
	return path, argv, nil
}

// CurrentSocket returns the server socket of the tmux client this process
// runs under, or "" outside tmux. $TMUX has the form "socket,pid,session".
func CurrentSocket() string {
	env := os.Getenv("TMUX")
	if env == "" {
		return ""
	}
	return strings.SplitN(env, ",", 2)[0]
}

// SameSocket reports whether two socket paths name the same file.
func SameSocket(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return canonical(a) == canonical(b)
}

func canonical(p string) string {
	p = filepath.Clean(p)
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}
