package lab

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Dicklesworthstone/labmux/internal/util"
)

// RenderRC returns the init script for the interactive slot. The session
// name is restricted to [A-Za-z0-9_-] by config validation, so it is safe
// to embed unquoted.
func RenderRC(session string, slots []Slot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# generated by labmux for session %s; rewritten whenever the shell slot starts\n", session)
	b.WriteString(`if [ -n "$BASH_VERSION" ] && [ -f "$HOME/.bashrc" ]; then . "$HOME/.bashrc"; fi` + "\n")
	fmt.Fprintf(&b, "LAB_SESSION=%s; export LAB_SESSION\n", session)
	fmt.Fprintf(&b, "PS1=\"(%s) ${PS1:-\\$ }\"\n", session)
	fmt.Fprintf(&b, "echo %q\n", fmt.Sprintf("labmux: session %s, %d worker windows (prefix+w to list)", session, len(slots)))
	return b.String()
}

// WriteRC writes the init script atomically.
func WriteRC(path, session string, slots []Slot) error {
	if err := util.AtomicWriteFile(path, []byte(RenderRC(session, slots)), 0600); err != nil {
		return fmt.Errorf("writing rc file %s: %w", path, err)
	}
	return nil
}

// ShellArgv returns the command that starts shell interactively with rc as
// its init file. bash takes --rcfile; POSIX shells read $ENV.
func ShellArgv(shell, rc string) []string {
	switch filepath.Base(shell) {
	case "bash":
		return []string{shell, "--rcfile", rc, "-i"}
	default:
		return []string{"/usr/bin/env", "ENV=" + rc, shell, "-i"}
	}
}
