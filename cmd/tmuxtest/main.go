// Command tmuxtest captures, drives, and waits on the panes of a running
// tmux server.
package main

import (
	"fmt"
	"os"

	"github.com/rockandska/tmuxtest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
