// Command labmux starts the lab's worker processes in a persistent tmux
// session and attaches to it.
package main

import (
	"os"

	"github.com/Dicklesworthstone/labmux/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
