// Package tmux provides a wrapper around tmux commands bound to one server socket.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Common errors
var (
	ErrNoServer        = errors.New("no tmux server running")
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// Client handles tmux operations against a dedicated server socket (-S).
type Client struct {
	Socket string // Absolute socket path; empty uses the user's default server
	Binary string // tmux executable, "tmux" when empty
}

// NewClient creates a new tmux client bound to socket
func NewClient(socket string) *Client {
	return &Client{Socket: socket}
}

func (c *Client) binary() string {
	if c.Binary == "" {
		return "tmux"
	}
	return c.Binary
}

// Args returns the full argument vector for a tmux invocation, socket flag
// included. Useful when the command must be exec'd rather than run.
func (c *Client) Args(args ...string) []string {
	all := make([]string, 0, len(args)+2)
	if c.Socket != "" {
		all = append(all, "-S", c.Socket)
	}
	return append(all, args...)
}

// RunContext executes a tmux command with cancellation support.
func (c *Client) RunContext(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary(), c.Args(args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", wrapError(err, stderr.String(), args)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RunSilentContext executes a tmux command ignoring output, with cancellation support.
func (c *Client) RunSilentContext(ctx context.Context, args ...string) error {
	_, err := c.RunContext(ctx, args...)
	return err
}

// EnsureInstalled returns an error if tmux is not installed
func (c *Client) EnsureInstalled() error {
	if _, err := exec.LookPath(c.binary()); err != nil {
		return fmt.Errorf("tmux is not installed: %w", err)
	}
	return nil
}

// wrapError classifies tmux failures into the package sentinels and keeps
// the underlying *exec.ExitError reachable through errors.As.
func wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}

	switch {
	case strings.Contains(stderr, "no server running"),
		strings.Contains(stderr, "error connecting to"),
		strings.Contains(stderr, "server exited unexpectedly"):
		return fmt.Errorf("tmux %s: %w: %s", sub, ErrNoServer, stderr)
	case strings.Contains(stderr, "duplicate session"):
		return fmt.Errorf("tmux %s: %w", sub, ErrSessionExists)
	case strings.Contains(stderr, "session not found"),
		strings.Contains(stderr, "can't find session"):
		return fmt.Errorf("tmux %s: %w", sub, ErrSessionNotFound)
	}

	if stderr != "" {
		return fmt.Errorf("tmux %s: %s: %w", sub, stderr, err)
	}
	return fmt.Errorf("tmux %s: %w", sub, err)
}
