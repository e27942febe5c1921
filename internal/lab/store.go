package lab

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/Dicklesworthstone/labmux/internal/config"
	"github.com/Dicklesworthstone/labmux/internal/exitcode"
)

// SessionState is what the store observed and did while ensuring a session.
type SessionState struct {
	Created        bool // the session did not exist and was created by this call
	StaleReclaimed bool // a dead socket was removed first
}

// Store owns the session and its socket file.
type Store struct {
	Mux     Mux
	Session string
	Root    string       // working directory of the default window
	Paths   config.Paths // socket lives at Paths.Socket
	Logger  *slog.Logger

	// TermSize reports the invoker's terminal size; ok is false when there
	// is no terminal. Defaults to the size of stdout.
	TermSize func() (width, height int, ok bool)
}

// Ensure makes sure the session exists on the dedicated server, reclaiming a
// stale socket on the way. A non-socket file at the socket path is fatal and
// is left in place.
func (s *Store) Ensure(ctx context.Context) (SessionState, error) {
	var state SessionState
	log := s.logger()

	if err := os.MkdirAll(s.Paths.RuntimeDir, 0700); err != nil {
		return state, exitcode.EnvironmentMissing("runtime directory "+s.Paths.RuntimeDir, err)
	}

	stale, err := s.checkSocket(ctx)
	if err != nil {
		return state, err
	}
	if stale {
		if err := os.Remove(s.Paths.Socket); err != nil && !os.IsNotExist(err) {
			return state, fmt.Errorf("removing stale socket %s: %w", s.Paths.Socket, err)
		}
		state.StaleReclaimed = true
		log.Info("removed stale socket", "socket", s.Paths.Socket)
	}

	exists, err := s.Mux.HasSession(ctx, s.Session)
	if err != nil {
		return state, fmt.Errorf("checking session %s: %w", s.Session, err)
	}
	if exists {
		log.Debug("session exists")
		return state, nil
	}

	width, height, _ := s.termSize()
	if err := s.Mux.NewSession(ctx, s.Session, config.InteractiveSlot, s.Root, width, height); err != nil {
		return state, fmt.Errorf("creating session %s: %w", s.Session, err)
	}
	state.Created = true
	log.Info("created session", "socket", s.Paths.Socket)
	return state, nil
}

// checkSocket reports whether the socket path holds a socket nobody answers on.
func (s *Store) checkSocket(ctx context.Context) (bool, error) {
	info, err := os.Lstat(s.Paths.Socket)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspecting socket %s: %w", s.Paths.Socket, err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return false, exitcode.SocketCollision(s.Paths.Socket)
	}
	if _, err := s.Mux.ListSessions(ctx); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		s.logger().Debug("liveness probe failed", "socket", s.Paths.Socket, "err", err)
		return true, nil
	}
	return false, nil
}

func (s *Store) termSize() (int, int, bool) {
	if s.TermSize != nil {
		return s.TermSize()
	}
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0, 0, false
	}
	w, h, err := term.GetSize(fd)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

func (s *Store) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
