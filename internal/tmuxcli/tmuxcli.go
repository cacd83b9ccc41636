// Package tmuxcli provides low-level tmux command execution against a single
// server socket. It is internal to the tmuxtest module.
package tmuxcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes tmux commands against a specific server socket.
type Runner struct {
	tmuxPath   string
	socketPath string
	configPath string
	colors     int
}

// New creates a Runner bound to the given tmux binary and socket path.
func New(tmuxPath, socketPath string) *Runner {
	return &Runner{
		tmuxPath:   tmuxPath,
		socketPath: socketPath,
	}
}

// SetConfigPath sets the path to a tmux config file. When set, all tmux
// invocations will include -f <configPath> before other arguments.
func (r *Runner) SetConfigPath(path string) {
	r.configPath = path
}

// SetColors forces the number of colors tmux assumes the terminal supports.
// 256 adds -2 and 88 adds -8; other values leave tmux's detection alone.
func (r *Runner) SetColors(colors int) {
	r.colors = colors
}

// Run executes a tmux command and returns its stdout.
func (r *Runner) Run(args ...string) (string, error) {
	return r.RunContext(context.Background(), args...)
}

// RunContext executes a tmux command with the given context and arguments.
// If the command fails, the returned error is an *Error carrying stderr.
func (r *Runner) RunContext(ctx context.Context, args ...string) (string, error) {
	fullArgs := r.globalArgs()
	fullArgs = append(fullArgs, args...)
	cmd := exec.CommandContext(ctx, r.tmuxPath, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		op := ""
		if len(args) > 0 {
			op = args[0]
		}
		return "", &Error{
			Op:     op,
			Args:   fullArgs,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.String(), nil
}

func (r *Runner) globalArgs() []string {
	var args []string
	switch r.colors {
	case 256:
		args = append(args, "-2")
	case 88:
		args = append(args, "-8")
	}
	if r.configPath != "" {
		args = append(args, "-f", r.configPath)
	}
	return append(args, "-S", r.socketPath)
}

// SocketPath returns the socket path used by this runner.
func (r *Runner) SocketPath() string {
	return r.socketPath
}

// TmuxPath returns the path to the tmux binary.
func (r *Runner) TmuxPath() string {
	return r.tmuxPath
}

// CapturePane returns the visible rows of target, trimmed of the blank rows
// tmux pads the bottom of the pane with.
func (r *Runner) CapturePane(target string) ([]string, error) {
	out, err := r.Run("capture-pane", "-p", "-t", target)
	if err != nil {
		return nil, err
	}
	return SplitRows(out), nil
}

// SplitRows splits capture-pane output into rows. Line endings are
// normalized and trailing empty rows dropped, so an idle shell prompt on a
// tall pane yields a single row.
func SplitRows(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	rows := strings.Split(raw, "\n")
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}

// Row returns row n of rows, counting from the end when n is negative.
// Rows outside the capture are empty.
func Row(rows []string, n int) string {
	if n < 0 {
		n += len(rows)
	}
	if n < 0 || n >= len(rows) {
		return ""
	}
	return rows[n]
}

// HasSession reports whether a session named exactly name exists on the
// server. A server that is not running has no sessions.
func (r *Runner) HasSession(name string) (bool, error) {
	_, err := r.Run("has-session", "-t", "="+name)
	if err == nil {
		return true, nil
	}
	if tmuxErr, ok := err.(*Error); ok {
		if exitErr, ok := tmuxErr.Err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
	}
	return false, err
}

// KillSession terminates the named session.
func (r *Runner) KillSession(name string) error {
	_, err := r.Run("kill-session", "-t", name)
	return err
}

// KillServer terminates the tmux server and every session on it.
func (r *Runner) KillServer() error {
	_, err := r.Run("kill-server")
	return err
}

// Error represents a tmux command failure.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tmux %s failed: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Version runs "tmux -V" and returns the version string (e.g. "3.4").
func Version(tmuxPath string) (string, error) {
	cmd := exec.Command(tmuxPath, "-V")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmux -V failed: %v (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	// "tmux 3.4", "tmux next-3.5"
	output := strings.TrimSpace(stdout.String())
	return strings.TrimPrefix(output, "tmux "), nil
}

// WaitForSession polls until session accepts commands or the timeout expires.
func (r *Runner) WaitForSession(session string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := r.Run("list-panes", "-t", session, "-F", "#{pane_id}")
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("tmux session %q not ready after %v: %w", session, timeout, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
