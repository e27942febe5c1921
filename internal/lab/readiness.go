package lab

import (
	"context"
	"strings"
	"time"

	"github.com/Dicklesworthstone/labmux/internal/config"
	"github.com/Dicklesworthstone/labmux/internal/tmux"
)

// Source fetches the current output of whatever is being watched.
type Source func(ctx context.Context) (string, error)

// PaneSource captures the last lines of a slot's pane.
func PaneSource(mux Mux, session, slot string, lines int) Source {
	target := tmux.Target(session, slot)
	return func(ctx context.Context) (string, error) {
		return mux.CapturePane(ctx, target, lines)
	}
}

// Detector polls a Source for a literal sentinel.
type Detector struct {
	Clock    Clock
	Interval time.Duration
}

// Wait polls src until its output contains sentinel or timeout elapses.
// It returns true when the sentinel was seen. Capture errors count as
// "not yet". The only error returned is ctx's.
func (d *Detector) Wait(ctx context.Context, src Source, sentinel string, timeout time.Duration) (bool, error) {
	clock := d.Clock
	if clock == nil {
		clock = RealClock{}
	}
	interval := d.Interval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	deadline := clock.Now().Add(timeout)
	for {
		if out, err := src(ctx); err == nil && strings.Contains(out, sentinel) {
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return false, nil
		}
		if err := clock.Sleep(ctx, min(interval, remaining)); err != nil {
			return false, err
		}
	}
}
