package lab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dicklesworthstone/labmux/internal/config"
	"github.com/Dicklesworthstone/labmux/internal/output"
	"github.com/Dicklesworthstone/labmux/internal/tmux"
	"github.com/Dicklesworthstone/labmux/internal/util"
)

// Readiness outcomes recorded for the anchor slot.
const (
	ReadySeen    = "ready"
	ReadyTimeout = "timeout"
	ReadySkipped = "skipped"
)

// SlotResult records what happened to one slot during a run.
type SlotResult struct {
	Name      string
	Status    SlotStatus
	Started   bool
	StartedAt time.Time
	Readiness string // anchor only
	Argv      []string
}

// Sequencer starts slots in dependency order.
type Sequencer struct {
	Mux      Mux
	Session  string
	Launcher *Launcher
	Detector *Detector
	Clock    Clock
	Logger   *slog.Logger

	StageDelay   time.Duration
	ReadyTimeout time.Duration
	ReadyGrace   time.Duration
	CaptureLines int

	Shell  string // interactive shell binary
	RCFile string
}

// Run starts every slot that should start this invocation: all of them
// when the session is new, otherwise only the ones whose window was just
// created. The first slot is the anchor; later slots wait for it to report
// ready (or for the timeout plus grace) before starting. The interactive
// slot goes last and follows the same rule, keyed by its entry in status.
func (q *Sequencer) Run(ctx context.Context, sessionCreated bool, slots []Slot, status map[string]SlotStatus) ([]SlotResult, error) {
	results := make([]SlotResult, 0, len(slots)+1)
	log := q.logger()

	for i, s := range slots {
		res := SlotResult{Name: s.Name, Status: status[s.Name], Argv: s.Argv}
		shouldStart := sessionCreated || res.Status == SlotCreated

		if shouldStart {
			started, err := q.Launcher.Launch(ctx, s)
			if err != nil {
				return results, err
			}
			res.Started = true
			res.StartedAt = started
			log.Info("started slot", "slot", s.Name)
		} else {
			log.Debug("slot already present, leaving it alone", "slot", s.Name)
		}

		if i == 0 {
			readiness, err := q.awaitAnchor(ctx, s, res.Started)
			if err != nil {
				return results, err
			}
			res.Readiness = readiness
		} else if shouldStart {
			if err := q.clock().Sleep(ctx, q.StageDelay); err != nil {
				return results, err
			}
		}
		results = append(results, res)
	}

	if sessionCreated || status[config.InteractiveSlot] == SlotCreated {
		res, err := q.startShell(ctx, slots)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// awaitAnchor waits for the anchor's sentinel. A sentinel that never shows
// up costs the grace delay and a warning, nothing more.
func (q *Sequencer) awaitAnchor(ctx context.Context, s Slot, launched bool) (string, error) {
	if !launched || s.Sentinel == "" {
		return ReadySkipped, nil
	}
	src := PaneSource(q.Mux, q.Session, s.Name, q.CaptureLines)
	ok, err := q.Detector.Wait(ctx, src, s.Sentinel, q.ReadyTimeout)
	if err != nil {
		return "", err
	}
	if ok {
		q.logger().Info("anchor ready", "slot", s.Name)
		return ReadySeen, nil
	}

	last := ""
	if out, err := src(ctx); err == nil {
		last = output.Truncate(util.LastLine(out), 120)
	}
	q.logger().Warn("readiness sentinel not seen, continuing after grace delay",
		"slot", s.Name, "sentinel", s.Sentinel, "timeout", q.ReadyTimeout, "grace", q.ReadyGrace, "last_line", last)
	if err := q.clock().Sleep(ctx, q.ReadyGrace); err != nil {
		return "", err
	}
	return ReadyTimeout, nil
}

// startShell binds the session's default window to an interactive shell
// initialised from the generated rc file.
func (q *Sequencer) startShell(ctx context.Context, slots []Slot) (SlotResult, error) {
	res := SlotResult{Name: config.InteractiveSlot, Status: SlotCreated}
	if err := WriteRC(q.RCFile, q.Session, slots); err != nil {
		return res, err
	}
	res.Argv = ShellArgv(q.Shell, q.RCFile)
	if err := q.Mux.RespawnPane(ctx, tmux.Target(q.Session, config.InteractiveSlot), "", res.Argv); err != nil {
		return res, fmt.Errorf("slot %s: %w", config.InteractiveSlot, err)
	}
	res.Started = true
	res.StartedAt = q.clock().Now()
	q.logger().Info("started slot", "slot", config.InteractiveSlot)
	return res, nil
}

func (q *Sequencer) clock() Clock {
	if q.Clock != nil {
		return q.Clock
	}
	return RealClock{}
}

func (q *Sequencer) logger() *slog.Logger {
	if q.Logger != nil {
		return q.Logger
	}
	return slog.Default()
}
