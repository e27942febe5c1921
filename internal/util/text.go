package util

import (
	"strings"
)

// LastLine returns the last non-blank line of captured pane output.
// capture-pane pads the visible area with empty lines, so trailing blanks
// are skipped.
func LastLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
