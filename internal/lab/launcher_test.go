package lab

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestExecArgv(t *testing.T) {
	got := ExecArgv([]string{"/env/bin/lab-master", "--name", "a 'b' \"c\""})
	want := []string{"/bin/sh", "-c", `exec "$@"`, "labmux", "/env/bin/lab-master", "--name", "a 'b' \"c\""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExecArgv() = %q, want %q", got, want)
	}
}

func TestBannerArgv(t *testing.T) {
	got := BannerArgv("hello $USER", []string{"/bin/true"})
	want := []string{"/bin/sh", "-c", `printf "%s\n" "$1"; shift; exec "$@"`, "labmux-banner", "hello $USER", "/bin/true"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BannerArgv() = %q, want %q", got, want)
	}
}

func TestFormatArgv(t *testing.T) {
	tests := []struct {
		argv []string
		want string
	}{
		{[]string{"/bin/lab", "--port", "8000"}, "/bin/lab --port 8000"},
		{[]string{"run", "two words"}, `run "two words"`},
		{[]string{"x", ""}, `x ""`},
		{[]string{"echo", "$HOME"}, `echo "$HOME"`},
	}
	for _, tt := range tests {
		if got := FormatArgv(tt.argv); got != tt.want {
			t.Errorf("FormatArgv(%q) = %q, want %q", tt.argv, got, tt.want)
		}
	}
}

func newLaunchFixture(t *testing.T) (*fakeMux, *fakeClock) {
	t.Helper()
	mux := newFakeMux()
	clock := newFakeClock()
	mux.clock = clock
	ctx := context.Background()
	if err := mux.NewSession(ctx, "lab", "shell", "/w", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := mux.NewWindow(ctx, "lab", "master", "/w"); err != nil {
		t.Fatal(err)
	}
	return mux, clock
}

func TestLaunchWithBanner(t *testing.T) {
	mux, clock := newLaunchFixture(t)
	env := map[string]string{"VIRTUAL_ENV": "/venv", "PYTHONPATH": "/src", "LAB_SCRATCH": "/scratch"}
	l := &Launcher{
		Mux:     mux,
		Session: "lab",
		Banner:  true,
		Clock:   clock,
		Getenv:  func(k string) string { return env[k] },
	}
	slot := Slot{Name: "master", Dir: "/w/m", Argv: []string{"/env/bin/lab-master", "--log", "a b"}}

	started, err := l.Launch(context.Background(), slot)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if !started.Equal(clock.Now()) {
		t.Errorf("started = %v", started)
	}

	win := mux.sessions["lab"][1]
	if win.options["remain-on-exit"] != "on" {
		t.Error("remain-on-exit not set")
	}
	if len(mux.respawns) != 1 {
		t.Fatalf("respawns = %d", len(mux.respawns))
	}
	r := mux.respawns[0]
	if r.target != "=lab:=master" || r.dir != "/w/m" {
		t.Errorf("respawn target=%q dir=%q", r.target, r.dir)
	}
	if !reflect.DeepEqual(r.argv[5:], slot.Argv) {
		t.Errorf("command tail = %q, want %q", r.argv[5:], slot.Argv)
	}

	banner := r.argv[4]
	for _, want := range []string{
		BannerPrefix + "start master 2026-01-02T03:04:05Z",
		"interpreter: /venv/bin/python",
		"VIRTUAL_ENV=/venv",
		"PYTHONPATH=/src",
		"LAB_SCRATCH=/scratch",
		`exec: /env/bin/lab-master --log "a b"`,
	} {
		if !strings.Contains(banner, want) {
			t.Errorf("banner missing %q:\n%s", want, banner)
		}
	}
	if strings.HasSuffix(banner, "\n") {
		t.Error("banner should not end in a newline; the script adds one")
	}
}

func TestLaunchWithoutBanner(t *testing.T) {
	mux, clock := newLaunchFixture(t)
	l := &Launcher{Mux: mux, Session: "lab", Clock: clock}
	if _, err := l.Launch(context.Background(), Slot{Name: "master", Argv: []string{"/bin/x"}}); err != nil {
		t.Fatal(err)
	}
	if got := mux.respawns[0].argv; !reflect.DeepEqual(got, ExecArgv([]string{"/bin/x"})) {
		t.Errorf("argv = %q", got)
	}
	if mux.banners() != 0 {
		t.Error("no banner expected")
	}
}

func TestLaunchErrors(t *testing.T) {
	mux, clock := newLaunchFixture(t)
	l := &Launcher{Mux: mux, Session: "lab", Clock: clock}

	if _, err := l.Launch(context.Background(), Slot{Name: "master"}); err == nil {
		t.Error("expected error for empty argv")
	}
	if _, err := l.Launch(context.Background(), Slot{Name: "ghost", Argv: []string{"/bin/x"}}); err == nil {
		t.Error("expected error for missing window")
	}

	mux.respawnErr = errors.New("boom")
	_, err := l.Launch(context.Background(), Slot{Name: "master", Argv: []string{"/bin/x"}})
	if err == nil || !strings.Contains(err.Error(), "slot master") {
		t.Errorf("err = %v", err)
	}
}

func TestInterpreter(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		look func(string) (string, error)
		want string
	}{
		{"virtual env wins", map[string]string{"VIRTUAL_ENV": "/a", "LAB_VENV": "/b"}, nil, "/a/bin/python"},
		{"lab venv", map[string]string{"LAB_VENV": "/b"}, nil, "/b/bin/python"},
		{"path lookup", nil, func(string) (string, error) { return "/usr/bin/python3", nil }, "/usr/bin/python3"},
		{"none", nil, func(string) (string, error) { return "", errors.New("nope") }, "(none)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Launcher{
				Getenv:   func(k string) string { return tt.env[k] },
				LookPath: tt.look,
			}
			if got := l.interpreter(); got != tt.want {
				t.Errorf("interpreter() = %q, want %q", got, tt.want)
			}
		})
	}
}
