// Package lab stands up the lab's worker processes inside a persistent tmux
// session and hands the terminal over to it.
//
// Every decision re-queries tmux through Mux; nothing about sessions or
// windows is cached between calls, since a human may close a window at any
// time.
package lab

import (
	"context"
	"time"
)

// Mux is the slice of the terminal multiplexer the orchestrator needs. It is
// satisfied by *tmux.Client and by in-memory fakes in tests.
type Mux interface {
	ListSessions(ctx context.Context) ([]string, error)
	HasSession(ctx context.Context, name string) (bool, error)
	NewSession(ctx context.Context, name, window, dir string, width, height int) error
	ListWindows(ctx context.Context, session string) ([]string, error)
	NewWindow(ctx context.Context, session, window, dir string) error
	SetGlobalEnvironment(ctx context.Context, key, value string) error
	SetWindowOption(ctx context.Context, target, option, value string) error
	RespawnPane(ctx context.Context, target, dir string, argv []string) error
	CapturePane(ctx context.Context, target string, lines int) (string, error)
}

// Clock abstracts time so waits can be driven by tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// Sleep waits for d unless ctx is cancelled first.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
