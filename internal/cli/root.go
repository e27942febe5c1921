// Package cli implements the labmux command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/labmux/internal/config"
	"github.com/Dicklesworthstone/labmux/internal/exitcode"
	"github.com/Dicklesworthstone/labmux/internal/lab"
	"github.com/Dicklesworthstone/labmux/internal/output"
)

// runFunc performs the orchestration once arguments have been validated.
type runFunc func(ctx context.Context, stderr io.Writer) error

func newRootCmd(run runFunc, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labmux",
		Short: "Start the lab's worker processes in a persistent tmux session",
		Long: `labmux stands up the lab's workers (master, ctlmgr, janitor, dashboard)
in a tmux session on a private socket, then attaches to it.

Running it again is safe: windows that already exist are left alone and
only missing ones are created and started. From inside the session it
switches instead of nesting.

Environment:
  LAB_SESSION        session name (default "lab")
  LAB_ROOT           working directory for every window (default: cwd)
  LAB_SCRATCH        scratch root; socket, rc file and journal live in <scratch>/run
  LAB_STAGE_DELAY    pause after each dependent starts (default 2s)
  LAB_READY_TIMEOUT  how long to wait for the master to listen (default 60s)
  LAB_ENV            execution environment root holding bin/<entry points>
  LAB_CONFIG         TOML config file
  LAB_LOG_LEVEL      debug, info, warn or error (default info)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			for _, a := range args {
				if a != "" {
					return exitcode.Usage("unexpected argument %q (labmux takes no arguments; see --help)", a)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stderr)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return exitcode.Usage("%v (see --help)", err)
	})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr, runLab)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer, run runFunc) int {
	cmd := newRootCmd(run, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitcode.Code(err)
	}
	return exitcode.Success
}

// runLab loads config, reconciles the session and hands the terminal over.
func runLab(ctx context.Context, stderr io.Writer) error {
	logger := newLogger(stderr, os.Getenv("LAB_LOG_LEVEL"))
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		return exitcode.Wrap(exitcode.ErrGeneral, "loading config", err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return exitcode.Wrap(exitcode.ErrGeneral, "invalid configuration", errors.Join(errs...))
	}
	logger.Debug("configuration loaded", "session", cfg.Session, "root", cfg.Root, "scratch", cfg.Scratch, "env_root", cfg.EnvRoot)

	orch := lab.New(cfg, logger)
	report, err := orch.Reconcile(ctx)
	if err != nil {
		return err
	}
	styles := output.NewStyles(stderr, output.ColorEnabled(stderr))
	printSummary(stderr, report, styles)
	return orch.Handoff(ctx)
}

// newLogger returns a text logger on w. Unknown levels fall back to info.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
