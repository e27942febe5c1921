package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Dicklesworthstone/labmux/internal/lab"
	"github.com/Dicklesworthstone/labmux/internal/output"
)

const maxCommandWidth = 60

// printSummary writes one line per slot describing what this run did.
func printSummary(w io.Writer, r *lab.Report, styles output.Styles) {
	state := "existing"
	if r.State.Created {
		state = "created"
	}
	fmt.Fprintf(w, "%s session %s (%s) on %s\n",
		styles.Render(styles.Title, "labmux:"), styles.Render(styles.Bold, r.Session), state, r.Socket)

	tbl := output.NewTable(w, "SLOT", "WINDOW", "PROCESS", "COMMAND")
	tbl.Style = func(col int, cell string) string {
		switch strings.TrimSpace(cell) {
		case "created", "started", "started (ready)":
			return styles.Render(styles.Good, cell)
		case "present", "kept":
			return styles.Render(styles.Muted, cell)
		case "started (timeout)":
			return styles.Render(styles.Warn, cell)
		}
		return cell
	}

	started := 0
	for _, res := range r.Results {
		process := "kept"
		if res.Started {
			started++
			process = "started"
			if res.Readiness == lab.ReadySeen || res.Readiness == lab.ReadyTimeout {
				process = fmt.Sprintf("started (%s)", res.Readiness)
			}
		}
		tbl.AddRow(res.Name, res.Status.String(), process, output.Truncate(lab.FormatArgv(res.Argv), maxCommandWidth))
	}
	tbl.Render()

	verb := "attaching"
	if r.Handoff == lab.HandoffSwitch {
		verb = "switching"
	}
	fmt.Fprintf(w, "%s, %s\n", output.CountStr(started, "process started", "processes started"), verb)
}
