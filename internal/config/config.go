package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults for the lab session.
const (
	DefaultSession      = "lab"
	DefaultStageDelay   = 2 * time.Second
	DefaultReadyTimeout = 60 * time.Second
	DefaultReadyGrace   = 3 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
	DefaultCaptureLines = 200
	DefaultSentinel     = "Listening on"

	// InteractiveSlot is the session's default window. It hosts a shell
	// rather than a managed process.
	InteractiveSlot = "shell"
)

// DefaultEnvAllowList is the ordered set of variables propagated from the
// invoking process into the session.
var DefaultEnvAllowList = []string{
	"PYTHONPATH",
	"VIRTUAL_ENV",
	"LAB_SCRATCH",
	"LAB_VENV",
	"QT_PLUGIN_PATH",
	"QT_QPA_PLATFORM_PLUGIN_PATH",
	"PATH",
	"IN_NIX_SHELL",
}

var validSessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Config represents the main configuration
type Config struct {
	Session      string       `toml:"session"`       // tmux session name, also keys socket/rc/journal files
	Root         string       `toml:"root"`          // Working-directory root for every slot
	Scratch      string       `toml:"scratch"`       // Scratch root; runtime files live in <scratch>/run
	EnvRoot      string       `toml:"env_root"`      // Execution environment root holding bin/<entry points>
	StageDelay   Duration     `toml:"stage_delay"`   // Pause after each dependent slot starts
	ReadyTimeout Duration     `toml:"ready_timeout"` // Upper bound for the anchor readiness wait
	ReadyGrace   Duration     `toml:"ready_grace"`   // Extra pause when the sentinel was not seen
	PollInterval Duration     `toml:"poll_interval"` // Readiness poll granularity
	CaptureLines int          `toml:"capture_lines"` // Scrollback lines inspected per poll
	Banner       bool         `toml:"banner"`        // Print a diagnostic banner before each command
	Shell        string       `toml:"shell"`         // Interactive shell for the shell slot
	ExtraEnv     []string     `toml:"extra_env"`     // Names appended to the propagation allow-list
	Slots        []SlotConfig `toml:"slots"`         // Managed slots in dependency order; first is the anchor
}

// SlotConfig describes one managed window.
type SlotConfig struct {
	Name     string   `toml:"name"`
	Command  []string `toml:"command"`  // argv; a bare first element resolves to <env_root>/bin/<name>
	Dir      string   `toml:"dir"`      // Working directory, relative paths are joined to Root
	Sentinel string   `toml:"sentinel"` // Readiness marker; only honored on the anchor slot
}

// Paths are the well-known files of one session, computed once per run.
type Paths struct {
	RuntimeDir string
	Socket     string
	RCFile     string
	Journal    string
}

// Duration is a time.Duration that decodes from TOML strings ("1500ms")
// or bare numbers of seconds.
type Duration time.Duration

// UnmarshalTOML implements toml.Unmarshaler.
func (d *Duration) UnmarshalTOML(v interface{}) error {
	switch val := v.(type) {
	case string:
		parsed, err := ParseDuration(val)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case int64:
		*d = Duration(time.Duration(val) * time.Second)
	case float64:
		*d = Duration(time.Duration(val * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration %v (%T)", v, v)
	}
	return nil
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ParseDuration accepts Go duration syntax or a bare number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use Go syntax (2s, 1500ms) or seconds", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// DefaultSlots returns the lab's managed processes in dependency order.
func DefaultSlots() []SlotConfig {
	return []SlotConfig{
		{Name: "master", Command: []string{"lab-master"}, Sentinel: DefaultSentinel},
		{Name: "ctlmgr", Command: []string{"lab-ctlmgr"}},
		{Name: "janitor", Command: []string{"lab-janitor"}},
		{Name: "dashboard", Command: []string{"lab-dashboard"}},
	}
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	if env := os.Getenv("LAB_CONFIG"); env != "" {
		return ExpandHome(env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "labmux", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "labmux", "config.toml")
}

// DefaultScratch returns the scratch root used when LAB_SCRATCH is unset.
func DefaultScratch() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "labmux")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("labmux-%d", os.Getuid()))
}

// DefaultEnvRoot returns the parent of the directory holding the running
// binary, which is where provisioning installs the entry points.
func DefaultEnvRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe))
}

// DefaultShell returns the user's shell, falling back to bash.
func DefaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}

// Default returns the default configuration.
func Default() *Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	return &Config{
		Session:      DefaultSession,
		Root:         root,
		Scratch:      DefaultScratch(),
		EnvRoot:      DefaultEnvRoot(),
		StageDelay:   Duration(DefaultStageDelay),
		ReadyTimeout: Duration(DefaultReadyTimeout),
		ReadyGrace:   Duration(DefaultReadyGrace),
		PollInterval: Duration(DefaultPollInterval),
		CaptureLines: DefaultCaptureLines,
		Banner:       true,
		Shell:        DefaultShell(),
		Slots:        DefaultSlots(),
	}
}

// Load loads configuration from a TOML file layered over defaults, then
// applies LAB_* environment overrides (Env > TOML > Default).
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Root = ExpandHome(cfg.Root)
	cfg.Scratch = ExpandHome(cfg.Scratch)
	cfg.EnvRoot = ExpandHome(cfg.EnvRoot)
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LAB_SESSION"); v != "" {
		cfg.Session = v
	}
	if v := os.Getenv("LAB_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("LAB_SCRATCH"); v != "" {
		cfg.Scratch = v
	}
	if v := os.Getenv("LAB_ENV"); v != "" {
		cfg.EnvRoot = v
	}
	if v := os.Getenv("LAB_STAGE_DELAY"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LAB_STAGE_DELAY: %w", err)
		}
		cfg.StageDelay = Duration(d)
	}
	if v := os.Getenv("LAB_READY_TIMEOUT"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LAB_READY_TIMEOUT: %w", err)
		}
		cfg.ReadyTimeout = Duration(d)
	}
	return nil
}

// Validate checks the configuration and returns every problem found.
func Validate(cfg *Config) []error {
	var errs []error

	if !validSessionNameRe.MatchString(cfg.Session) {
		errs = append(errs, fmt.Errorf("invalid session name %q: must match %s", cfg.Session, validSessionNameRe.String()))
	}
	if cfg.Root == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	if cfg.Scratch == "" {
		errs = append(errs, errors.New("scratch must not be empty"))
	}

	durations := []struct {
		name string
		d    Duration
	}{
		{"stage_delay", cfg.StageDelay},
		{"ready_timeout", cfg.ReadyTimeout},
		{"ready_grace", cfg.ReadyGrace},
	}
	for _, dur := range durations {
		if dur.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", dur.name))
		}
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if cfg.CaptureLines <= 0 {
		errs = append(errs, errors.New("capture_lines must be positive"))
	}

	if len(cfg.Slots) == 0 {
		errs = append(errs, errors.New("at least one slot is required"))
	}
	seen := make(map[string]bool, len(cfg.Slots))
	for i, s := range cfg.Slots {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("slot %d: name is required", i))
			continue
		case strings.ContainsAny(s.Name, ":.="):
			errs = append(errs, fmt.Errorf("slot %q: name cannot contain ':', '.' or '='", s.Name))
		case s.Name == InteractiveSlot:
			errs = append(errs, fmt.Errorf("slot %q: name is reserved for the interactive shell", s.Name))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("slot %q: duplicate name", s.Name))
		}
		seen[s.Name] = true
		if len(s.Command) == 0 || s.Command[0] == "" {
			errs = append(errs, fmt.Errorf("slot %q: command is required", s.Name))
		}
	}

	return errs
}

// Paths returns the session's socket, rc and journal locations.
func (c *Config) Paths() Paths {
	runtimeDir := filepath.Join(c.Scratch, "run")
	return Paths{
		RuntimeDir: runtimeDir,
		Socket:     filepath.Join(runtimeDir, c.Session+".sock"),
		RCFile:     filepath.Join(runtimeDir, c.Session+".rc"),
		Journal:    filepath.Join(runtimeDir, c.Session+".journal.yaml"),
	}
}

// EnvAllowList returns the default allow-list followed by any extra names,
// without duplicates.
func (c *Config) EnvAllowList() []string {
	names := make([]string, 0, len(DefaultEnvAllowList)+len(c.ExtraEnv))
	seen := make(map[string]bool)
	for _, n := range append(append([]string{}, DefaultEnvAllowList...), c.ExtraEnv...) {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

// SlotDir returns the working directory for a slot.
func (c *Config) SlotDir(s SlotConfig) string {
	switch {
	case s.Dir == "":
		return c.Root
	case filepath.IsAbs(s.Dir):
		return s.Dir
	default:
		return filepath.Join(c.Root, ExpandHome(s.Dir))
	}
}

// ResolveCommand returns argv with its executable made absolute. A bare
// name resolves to <env_root>/bin/<name>; a relative path resolves against Root.
func (c *Config) ResolveCommand(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	out := append([]string{}, argv...)
	exe := ExpandHome(out[0])
	switch {
	case filepath.IsAbs(exe):
	case !strings.Contains(exe, "/"):
		exe = filepath.Join(c.EnvRoot, "bin", exe)
	default:
		exe = filepath.Join(c.Root, exe)
	}
	out[0] = exe
	return out
}

// ExpandHome expands the tilde (~) in a path to the user's home directory.
// Supports "~" and "~/path" formats.
func ExpandHome(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}

	return path
}
