package lab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Dicklesworthstone/labmux/internal/config"
	"github.com/Dicklesworthstone/labmux/internal/exitcode"
	"github.com/Dicklesworthstone/labmux/internal/tmux"
)

// Report summarises one reconciliation run.
type Report struct {
	Session     string
	Socket      string
	State       SessionState
	Results     []SlotResult
	Handoff     Handoff
	JournalPath string
}

// Orchestrator wires the components together for one invocation.
type Orchestrator struct {
	Config   *config.Config
	Paths    config.Paths
	Mux      Mux
	FrontEnd *FrontEnd
	Clock    Clock
	Logger   *slog.Logger

	// Lookup reads the invoker's environment; defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
	// TermSize overrides terminal detection for new sessions.
	TermSize func() (int, int, bool)
}

// New returns an orchestrator driving a real tmux server on the session's
// dedicated socket.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	paths := cfg.Paths()
	client := tmux.NewClient(paths.Socket)
	return &Orchestrator{
		Config: cfg,
		Paths:  paths,
		Mux:    client,
		FrontEnd: &FrontEnd{
			Client:  client,
			Socket:  paths.Socket,
			Session: cfg.Session,
		},
		Clock:  RealClock{},
		Logger: logger,
	}
}

// CheckEnvironment verifies the working root and every entry point before
// anything in tmux is touched.
func CheckEnvironment(root string, slots []Slot) error {
	info, err := os.Stat(root)
	if err != nil {
		return exitcode.EnvironmentMissing("working root "+root, err)
	}
	if !info.IsDir() {
		return exitcode.EnvironmentMissing("working root "+root, errors.New("not a directory"))
	}
	for _, s := range slots {
		exe := s.Argv[0]
		info, err := os.Stat(exe)
		if err != nil {
			return exitcode.EnvironmentMissing(fmt.Sprintf("entry point for %s", s.Name), err)
		}
		if info.IsDir() || info.Mode().Perm()&0111 == 0 {
			return exitcode.EnvironmentMissing(fmt.Sprintf("entry point for %s", s.Name), fmt.Errorf("%s is not executable", exe))
		}
	}
	return nil
}

// Reconcile brings the session to its target state: session present,
// environment propagated, every slot window present, and slots created by
// this run started in order. It records the outcome in the journal.
func (o *Orchestrator) Reconcile(ctx context.Context) (*Report, error) {
	cfg := o.Config
	log := o.logger().With("session", cfg.Session)
	clock := o.Clock
	if clock == nil {
		clock = RealClock{}
	}
	began := clock.Now()

	if inst, ok := o.Mux.(interface{ EnsureInstalled() error }); ok {
		if err := inst.EnsureInstalled(); err != nil {
			return nil, exitcode.EnvironmentMissing("tmux", err)
		}
	}
	slots := SlotsFromConfig(cfg)
	if err := CheckEnvironment(cfg.Root, slots); err != nil {
		return nil, err
	}

	store := &Store{
		Mux:      o.Mux,
		Session:  cfg.Session,
		Root:     cfg.Root,
		Paths:    o.Paths,
		Logger:   log,
		TermSize: o.TermSize,
	}
	state, err := store.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	vars := Snapshot(cfg.EnvAllowList(), o.Lookup)
	if err := Propagate(ctx, o.Mux, vars); err != nil {
		return nil, err
	}
	log.Debug("propagated environment", "count", len(vars))

	status, err := Reconcile(ctx, o.Mux, cfg.Session, slots)
	if err != nil {
		return nil, err
	}
	shell, err := EnsureSlot(ctx, o.Mux, cfg.Session, config.InteractiveSlot, cfg.Root)
	if err != nil {
		return nil, err
	}
	status[config.InteractiveSlot] = shell

	getenv := func(name string) string {
		for _, v := range vars {
			if v.Name == name {
				return v.Value
			}
		}
		return ""
	}
	seq := &Sequencer{
		Mux:     o.Mux,
		Session: cfg.Session,
		Launcher: &Launcher{
			Mux:     o.Mux,
			Session: cfg.Session,
			Banner:  cfg.Banner,
			Clock:   clock,
			Getenv:  getenv,
		},
		Detector:     &Detector{Clock: clock, Interval: cfg.PollInterval.Std()},
		Clock:        clock,
		Logger:       log,
		StageDelay:   cfg.StageDelay.Std(),
		ReadyTimeout: cfg.ReadyTimeout.Std(),
		ReadyGrace:   cfg.ReadyGrace.Std(),
		CaptureLines: cfg.CaptureLines,
		Shell:        cfg.Shell,
		RCFile:       o.Paths.RCFile,
	}
	results, err := seq.Run(ctx, state.Created, slots, status)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Session:     cfg.Session,
		Socket:      o.Paths.Socket,
		State:       state,
		Results:     results,
		Handoff:     o.FrontEnd.Mode(),
		JournalPath: o.Paths.Journal,
	}
	journal := NewJournal(cfg.Session, o.Paths.Socket, began, state, results, report.Handoff)
	if err := WriteJournal(o.Paths.Journal, journal); err != nil {
		log.Warn("could not write launch journal", "err", err)
		report.JournalPath = ""
	}
	return report, nil
}

// Handoff gives the terminal to the session.
func (o *Orchestrator) Handoff(ctx context.Context) error {
	return o.FrontEnd.Handoff(ctx)
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
