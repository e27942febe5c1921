package lab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dicklesworthstone/labmux/internal/tmux"
)

// fakeWindow is one window of the in-memory multiplexer.
type fakeWindow struct {
	name    string
	dir     string
	argv    []string
	options map[string]string
	output  strings.Builder
}

type respawn struct {
	target string
	dir    string
	argv   []string
	at     time.Time
}

// fakeMux is an in-memory tmux: a key/value store of sessions and windows.
type fakeMux struct {
	serverUp bool
	sessions map[string][]*fakeWindow
	env      map[string]string
	respawns []respawn
	calls    []string
	clock    *fakeClock

	// emit maps a slot name to output it "prints" when respawned.
	emit map[string]string

	captureErr error
	respawnErr error
}

func newFakeMux() *fakeMux {
	return &fakeMux{
		sessions: make(map[string][]*fakeWindow),
		env:      make(map[string]string),
		emit:     make(map[string]string),
	}
}

func splitTarget(target string) (session, window string) {
	target = strings.TrimPrefix(target, "=")
	session, window, _ = strings.Cut(target, ":")
	return session, strings.TrimPrefix(window, "=")
}

func (m *fakeMux) window(target string) (*fakeWindow, error) {
	s, w := splitTarget(target)
	for _, win := range m.sessions[s] {
		if win.name == w {
			return win, nil
		}
	}
	return nil, fmt.Errorf("can't find window: %s", target)
}

func (m *fakeMux) ListSessions(ctx context.Context) ([]string, error) {
	m.calls = append(m.calls, "list-sessions")
	if !m.serverUp {
		return nil, tmux.ErrNoServer
	}
	var names []string
	for name := range m.sessions {
		names = append(names, name)
	}
	return names, nil
}

func (m *fakeMux) HasSession(ctx context.Context, name string) (bool, error) {
	m.calls = append(m.calls, "has-session "+name)
	_, ok := m.sessions[name]
	return ok, nil
}

func (m *fakeMux) NewSession(ctx context.Context, name, window, dir string, width, height int) error {
	m.calls = append(m.calls, "new-session "+name)
	if _, ok := m.sessions[name]; ok {
		return tmux.ErrSessionExists
	}
	m.serverUp = true
	m.sessions[name] = []*fakeWindow{{name: window, dir: dir, options: map[string]string{}}}
	return nil
}

func (m *fakeMux) ListWindows(ctx context.Context, session string) ([]string, error) {
	m.calls = append(m.calls, "list-windows "+session)
	wins, ok := m.sessions[session]
	if !ok {
		return nil, tmux.ErrSessionNotFound
	}
	names := make([]string, len(wins))
	for i, w := range wins {
		names[i] = w.name
	}
	return names, nil
}

func (m *fakeMux) NewWindow(ctx context.Context, session, window, dir string) error {
	m.calls = append(m.calls, "new-window "+window)
	if _, ok := m.sessions[session]; !ok {
		return tmux.ErrSessionNotFound
	}
	m.sessions[session] = append(m.sessions[session], &fakeWindow{name: window, dir: dir, options: map[string]string{}})
	return nil
}

func (m *fakeMux) SetGlobalEnvironment(ctx context.Context, key, value string) error {
	m.calls = append(m.calls, "set-environment "+key)
	m.env[key] = value
	return nil
}

func (m *fakeMux) SetWindowOption(ctx context.Context, target, option, value string) error {
	m.calls = append(m.calls, "set-option "+target)
	w, err := m.window(target)
	if err != nil {
		return err
	}
	w.options[option] = value
	return nil
}

func (m *fakeMux) RespawnPane(ctx context.Context, target, dir string, argv []string) error {
	m.calls = append(m.calls, "respawn-pane "+target)
	if m.respawnErr != nil {
		return m.respawnErr
	}
	w, err := m.window(target)
	if err != nil {
		return err
	}
	w.argv = argv
	if len(argv) > 4 && argv[3] == "labmux-banner" {
		w.output.WriteString(argv[4] + "\n")
	}
	w.output.WriteString(m.emit[w.name])
	r := respawn{target: target, dir: dir, argv: argv}
	if m.clock != nil {
		r.at = m.clock.Now()
	}
	m.respawns = append(m.respawns, r)
	return nil
}

func (m *fakeMux) CapturePane(ctx context.Context, target string, lines int) (string, error) {
	if m.captureErr != nil {
		return "", m.captureErr
	}
	w, err := m.window(target)
	if err != nil {
		return "", err
	}
	return w.output.String(), nil
}

// closeWindow drops a window the way a human closing it would.
func (m *fakeMux) closeWindow(session, name string) {
	wins := m.sessions[session]
	for i, w := range wins {
		if w.name == name {
			m.sessions[session] = append(wins[:i], wins[i+1:]...)
			return
		}
	}
}

// banners counts start banners across all panes.
func (m *fakeMux) banners() int {
	n := 0
	for _, wins := range m.sessions {
		for _, w := range wins {
			n += strings.Count(w.output.String(), BannerPrefix+"start ")
		}
	}
	return n
}

// fakeClock advances only when slept on.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	// onSleep runs after each sleep, letting tests change the world.
	onSleep func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.onSleep != nil {
		c.onSleep()
	}
	return nil
}

func (c *fakeClock) slept() time.Duration {
	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}

var errCapture = errors.New("capture failed")
