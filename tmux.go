package tmuxtest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/rockandska/tmuxtest/internal/config"
	"github.com/rockandska/tmuxtest/internal/tmuxcli"
)

const minTmuxVersion = "3.0"

// findTmux returns the tmux binary to use: the WithTmuxPath option, then
// TMUXTEST_TMUX, then tmux on $PATH. A binary found on $PATH that is missing
// or too old skips the test; an explicitly configured one fails it.
func findTmux(t testing.TB, configured string) string {
	t.Helper()

	path, explicit := configured, true
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "_TMUX")
	}
	if path == "" {
		explicit = false
		found, err := exec.LookPath("tmux")
		if err != nil {
			t.Skip("tmuxtest: open: tmux not found")
		}
		path = found
	}

	unusable := t.Skipf
	if explicit {
		unusable = t.Fatalf
	}

	version, err := tmuxcli.Version(path)
	if err != nil {
		unusable("tmuxtest: open: %v", err)
		return path
	}
	if !versionAtLeast(version, minTmuxVersion) {
		unusable("tmuxtest: open: tmux version %s is below minimum %s", version, minTmuxVersion)
	}
	return path
}

// versionRe extracts major.minor from strings like "3.4", "next-3.5", "3.3a".
var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

func parseVersion(v string) (major, minor int, ok bool) {
	m := versionRe.FindStringSubmatch(v)
	if m == nil {
		return 0, 0, false
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	return major, minor, true
}

func versionAtLeast(version, minVersion string) bool {
	major, minor, ok := parseVersion(version)
	wantMajor, wantMinor, wantOK := parseVersion(minVersion)
	if !ok || !wantOK {
		return false
	}
	return major > wantMajor || major == wantMajor && minor >= wantMinor
}

// socketPath returns an unused socket path under os.TempDir named after the
// test.
func socketPath(testName string) (string, error) {
	b := make([]byte, 4)
	for i := 0; i < 10; i++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate socket name: %w", err)
		}
		path := filepath.Join(os.TempDir(), fmt.Sprintf("tmuxtest-%s-%s.sock", sanitizeName(testName), hex.EncodeToString(b)))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", fmt.Errorf("could not find an unused socket path")
}

// sanitizeName replaces characters that are not filesystem-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	// Unix socket paths are limited to 104/108 bytes.
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

// tmuxName turns a test name into a session or window name. tmux reserves
// '.' and ':' in target names, so only letters and digits survive.
func tmuxName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// writeConfig writes the tmux config used when none is configured.
func writeConfig(configPath string, historyLimit int) error {
	cfg := fmt.Sprintf("set-option -g history-limit %d\nset-option -g remain-on-exit on\nset-option -g status off\n", historyLimit)
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		return fmt.Errorf("failed to write tmux config: %w", err)
	}
	return nil
}

// shellQuote quotes s for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// windowCommand returns the shell command tmux runs in the window. With
// environment variables it goes through /usr/bin/env, falling back to the
// user's shell when no command is configured.
func windowCommand(command string, env []string) string {
	if len(env) == 0 {
		return command
	}
	parts := make([]string, 0, len(env)+2)
	parts = append(parts, "/usr/bin/env")
	for _, e := range env {
		parts = append(parts, shellQuote(e))
	}
	if command == "" {
		command = `"${SHELL:-/bin/sh}"`
	}
	return strings.Join(append(parts, command), " ")
}

// startSession starts a detached session with its first window.
func startSession(runner *tmuxcli.Runner, session, window, command string, cfg config.Session) error {
	args := []string{
		"new-session", "-d",
		"-s", session,
		"-n", window,
		"-x", strconv.Itoa(cfg.Width),
		"-y", strconv.Itoa(cfg.Height),
	}
	if cfg.StartDirectory != "" {
		args = append(args, "-c", cfg.StartDirectory)
	}
	if command != "" {
		args = append(args, command)
	}

	if _, err := runner.Run(args...); err != nil {
		return fmt.Errorf("failed to start tmux session: %w", err)
	}
	return nil
}

// keepDeadPane keeps pane's window open after its command exits, so its exit
// status stays readable under any server config.
func keepDeadPane(runner *tmuxcli.Runner, pane string) error {
	if _, err := runner.Run("set-option", "-w", "-t", pane, "remain-on-exit", "on"); err != nil {
		return fmt.Errorf("failed to set remain-on-exit: %w", err)
	}
	return nil
}

// sendKeys sends key sequences to the pane.
func sendKeys(runner *tmuxcli.Runner, pane string, keys []string) error {
	args := append([]string{"send-keys", "-t", pane}, keys...)
	_, err := runner.Run(args...)
	return err
}

// resizeWindow resizes the window holding pane.
func resizeWindow(runner *tmuxcli.Runner, pane string, width, height int) error {
	_, err := runner.Run("resize-window", "-t", pane, "-x", strconv.Itoa(width), "-y", strconv.Itoa(height))
	return err
}

// paneState holds the dead status and exit code of a pane.
type paneState struct {
	dead       bool
	exitStatus int
}

func getPaneState(runner *tmuxcli.Runner, pane string) (paneState, error) {
	output, err := runner.Run("list-panes", "-t", pane, "-F", "#{pane_dead} #{pane_dead_status}")
	if err != nil {
		return paneState{}, err
	}

	parts := strings.SplitN(strings.TrimSpace(output), " ", 2)

	dead := parts[0] == "1"
	status := 0
	if dead && len(parts) >= 2 {
		status, _ = strconv.Atoi(parts[1])
	}
	return paneState{dead: dead, exitStatus: status}, nil
}

// windowSize queries the size of the window holding pane.
func windowSize(runner *tmuxcli.Runner, pane string) (width, height int, err error) {
	output, err := runner.Run("display-message", "-p", "-t", pane, "#{window_width} #{window_height}")
	if err != nil {
		return 0, 0, err
	}

	parts := strings.Fields(output)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected display-message output: %q", output)
	}
	if width, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("parsing window_width: %w", err)
	}
	if height, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("parsing window_height: %w", err)
	}
	return width, height, nil
}
