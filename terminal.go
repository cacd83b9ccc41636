package tmuxtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rockandska/tmuxtest/internal/config"
	"github.com/rockandska/tmuxtest/internal/tmuxcli"
	"github.com/sirupsen/logrus"
)

// Terminal is a handle to a tmux session running a program under test.
// It is created with Open or Suite.Open and cleaned up automatically via
// t.Cleanup.
type Terminal struct {
	t        testing.TB
	runner   *tmuxcli.Runner
	cfg      *config.Config
	session  string
	window   string
	pane     string
	log      *logrus.Entry
	debugger *debugger
}

const (
	failureCaptureHistory = 3
	sessionReadyTimeout   = 5 * time.Second
)

// Suite opens terminals that share a set of options. Its options sit below
// the ones passed to Suite.Open, and both sit below the environment.
type Suite struct {
	opts []Option
}

// NewSuite returns a Suite applying opts to every Terminal it opens.
func NewSuite(opts ...Option) *Suite {
	return &Suite{opts: opts}
}

// Open starts a Terminal with the suite's options overridden by opts.
func (s *Suite) Open(t testing.TB, opts ...Option) *Terminal {
	t.Helper()
	return open(t, s.opts, opts)
}

// Open starts a new tmux session for the test.
// Cleanup is automatic via t.Cleanup; no defer needed.
func Open(t testing.TB, opts ...Option) *Terminal {
	t.Helper()
	return open(t, nil, opts)
}

func open(t testing.TB, fixtureOpts, markerOpts []Option) *Terminal {
	t.Helper()

	fixture := newOptions(fixtureOpts)
	marker := newOptions(markerOpts)
	opts := fixture.overlay(marker)

	cfg, err := loadConfig(opts.settingsFile, fixture.values, marker.values)
	if err != nil {
		t.Fatalf("tmuxtest: open: %v", err)
	}

	tmuxPath := findTmux(t, opts.tmuxPath)

	// Without a configured socket the test owns a dedicated server.
	socket := cfg.Server.SocketPath
	ownsServer := socket == ""
	if ownsServer {
		if socket, err = socketPath(t.Name()); err != nil {
			t.Fatalf("tmuxtest: open: %v", err)
		}
	}

	runner := tmuxcli.New(tmuxPath, socket)
	runner.SetColors(cfg.Server.Colors)

	configPath := cfg.Server.ConfigFile
	if configPath == "" {
		configPath = filepath.Join(t.TempDir(), "tmux.conf")
		if err := writeConfig(configPath, cfg.Session.HistoryLimit); err != nil {
			t.Fatalf("tmuxtest: open: %v", err)
		}
	}
	runner.SetConfigPath(configPath)

	session := cfg.Session.Name
	if session == "" {
		session = tmuxName("tmuxtest_" + t.Name())
	}
	window := cfg.Session.WindowName
	if window == "" {
		window = tmuxName(t.Name())
	}

	if !ownsServer {
		exists, err := runner.HasSession(session)
		if err != nil {
			t.Fatalf("tmuxtest: open: %v", err)
		}
		if exists {
			t.Fatalf("tmuxtest: open: session %q already exists on %s", session, socket)
		}
	}

	command := windowCommand(cfg.Session.WindowCommand, opts.env)
	if err := startSession(runner, session, window, command, cfg.Session); err != nil {
		t.Fatalf("tmuxtest: open: %v", err)
	}

	term := &Terminal{
		t:       t,
		runner:  runner,
		cfg:     cfg,
		session: session,
		window:  window,
	}

	t.Cleanup(func() {
		term.Debug("Closing session")
		if ownsServer {
			_ = runner.KillServer()
		} else {
			_ = runner.KillSession(session)
		}
	})

	if err := runner.WaitForSession(session, sessionReadyTimeout); err != nil {
		t.Fatalf("tmuxtest: open: %v", err)
	}

	output, err := runner.Run("list-panes", "-t", session, "-F", "#{pane_id}")
	if err != nil {
		t.Fatalf("tmuxtest: open: failed to get pane ID: %v", err)
	}
	term.pane = strings.TrimSpace(strings.SplitN(output, "\n", 2)[0])
	if err := keepDeadPane(runner, term.pane); err != nil {
		t.Fatalf("tmuxtest: open: %v", err)
	}

	logger := opts.logger
	if logger == nil {
		logger = logrus.New()
		level, _ := logrus.ParseLevel(cfg.LogLevel)
		logger.SetLevel(level)
	}
	term.log = logger.WithFields(logrus.Fields{"session": session, "pane": term.pane})
	term.debugger = newDebugger(cfg.Debug, opts.prompt, term.log)

	term.log.WithField("socket", socket).Debug("session started")
	return term
}

// loadConfig stacks the layers in precedence order: defaults, settings
// file, suite options, per-call options, then the environment.
func loadConfig(settingsFile string, fixture, marker map[string]any) (*config.Config, error) {
	loader := config.NewLoader()

	if settingsFile == "" {
		settingsFile = os.Getenv(config.SettingsEnv)
	}
	if settingsFile != "" {
		if err := loader.ReadFile(settingsFile); err != nil {
			return nil, err
		}
	}
	if err := loader.Merge(fixture); err != nil {
		return nil, err
	}
	if err := loader.Merge(marker); err != nil {
		return nil, err
	}
	return loader.Load()
}

// SocketPath returns the socket of the tmux server the session runs on.
func (term *Terminal) SocketPath() string {
	return term.runner.SocketPath()
}

// Session returns the tmux session name.
func (term *Terminal) Session() string {
	return term.session
}

// Window returns the name of the session's window.
func (term *Terminal) Window() string {
	return term.window
}

// Pane returns the tmux pane ID (e.g. "%0").
func (term *Terminal) Pane() string {
	return term.pane
}

// Screen returns a live view of the whole pane. Comparisons on it poll with
// the configured assertion timeout and delay unless wopts override them.
func (term *Terminal) Screen(wopts ...WaitOption) *Output {
	term.t.Helper()
	term.Debug("Check tmux screen")

	out, err := NewOutput(term.captureScreen, term.policy(wopts))
	if err != nil {
		term.t.Fatalf("tmuxtest: screen: %v", err)
	}
	return out
}

// Row returns a live view of row n of the pane. Rows past the captured
// content read as the empty string; negative n counts back from the last
// captured row.
func (term *Terminal) Row(n int, wopts ...WaitOption) *Output {
	term.t.Helper()
	term.Debug(fmt.Sprintf("Check tmux row %d", n))

	out, err := NewOutput(func() (string, error) {
		rows, err := term.runner.CapturePane(term.pane)
		if err != nil {
			return "", err
		}
		return tmuxcli.Row(rows, n), nil
	}, term.policy(wopts))
	if err != nil {
		term.t.Fatalf("tmuxtest: row: %v", err)
	}
	return out
}

func (term *Terminal) captureScreen() (string, error) {
	rows, err := term.runner.CapturePane(term.pane)
	if err != nil {
		return "", err
	}
	return strings.Join(rows, "\n"), nil
}

func (term *Terminal) policy(wopts []WaitOption) Policy {
	wo := waitOptions{}
	for _, o := range wopts {
		o(&wo)
	}

	p := Policy{Timeout: term.cfg.Assertion.Timeout, Delay: term.cfg.Assertion.Delay}
	if wo.timeoutSet {
		p.Timeout = wo.timeout
	}
	if wo.delaySet {
		p.Delay = wo.delay
	}
	return p
}

// SendKeys sends keys to the pane followed by Enter.
func (term *Terminal) SendKeys(keys string, sopts ...SendOption) {
	term.t.Helper()

	so := sendOptions{enter: true}
	for _, o := range sopts {
		o(&so)
	}

	term.Debug(fmt.Sprintf("Send %q to tmux session", keys))
	term.requireAlive("send-keys")

	if so.suppressHistory {
		keys = " " + keys
	}
	args := []string{"send-keys", "-t", term.pane}
	if so.literal {
		args = append(args, "-l")
	}
	args = append(args, keys)
	if _, err := term.runner.Run(args...); err != nil {
		term.t.Fatalf("tmuxtest: send-keys: %v", err)
	}

	if so.enter {
		if err := sendKeys(term.runner, term.pane, []string{string(Enter)}); err != nil {
			term.t.Fatalf("tmuxtest: send-keys: %v", err)
		}
	}
}

// Type sends a string literally, without Enter.
func (term *Terminal) Type(s string) {
	term.t.Helper()
	term.SendKeys(s, Literal(), WithoutEnter())
}

// Press sends one or more special keys.
func (term *Terminal) Press(keys ...Key) {
	term.t.Helper()
	term.requireAlive("send-keys")

	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = string(k)
	}
	if err := sendKeys(term.runner, term.pane, strs); err != nil {
		term.t.Fatalf("tmuxtest: send-keys: %v", err)
	}
}

// Clear runs reset in the pane and drops its scrollback.
func (term *Terminal) Clear() {
	term.t.Helper()
	term.SendKeys("reset")
	if _, err := term.runner.Run("clear-history", "-t", term.pane); err != nil {
		term.t.Fatalf("tmuxtest: clear: %v", err)
	}
}

// Resize changes the window dimensions.
// This sends a SIGWINCH to the running program.
func (term *Terminal) Resize(width, height int) {
	term.t.Helper()
	term.requireAlive("resize")
	if err := resizeWindow(term.runner, term.pane, width, height); err != nil {
		term.t.Fatalf("tmuxtest: resize: %v", err)
	}
	term.cfg.Session.Width = width
	term.cfg.Session.Height = height
}

// WaitExit waits for the window command to exit and returns its exit code.
// It polls under the same policy as comparisons.
func (term *Terminal) WaitExit(wopts ...WaitOption) int {
	term.t.Helper()

	policy := term.policy(wopts)
	var state paneState
	recent := make([]string, 0, failureCaptureHistory)

	ok, err := policy.Run(func() (bool, error) {
		s, err := getPaneState(term.runner, term.pane)
		if err != nil {
			return false, err
		}
		state = s
		if !s.dead {
			if text, err := term.captureScreen(); err == nil {
				recent = appendRecent(recent, text, failureCaptureHistory)
			}
		}
		return s.dead, nil
	})
	if err != nil {
		term.t.Fatalf("tmuxtest: wait-exit: %v", err)
	}
	if !ok {
		term.t.Fatalf("tmuxtest: wait-exit: timed out after %v\n    pane still alive\n    recent screen captures (oldest to newest):\n%s",
			policy.Timeout, formatRecent(recent, term.cfg.Session.Width))
	}
	return state.exitStatus
}

// requireAlive calls t.Fatal if the window command has exited.
func (term *Terminal) requireAlive(op string) {
	term.t.Helper()

	state, err := getPaneState(term.runner, term.pane)
	if err != nil {
		return
	}
	if state.dead {
		term.t.Fatalf("tmuxtest: %s: process exited unexpectedly (status %d)", op, state.exitStatus)
	}
}

func appendRecent(texts []string, text string, max int) []string {
	texts = append(texts, text)
	if len(texts) > max {
		texts = texts[len(texts)-max:]
	}
	return texts
}

func formatRecent(texts []string, width int) string {
	if len(texts) == 0 {
		return "    (no screen captured)"
	}

	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "    capture %d/%d:\n%s", i+1, len(texts), formatScreenBox(text, width))
		if i < len(texts)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatScreenBox draws a box around captured text for error messages.
func formatScreenBox(text string, width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	border := strings.Repeat("\u2500", width)

	fmt.Fprintf(&b, "    \u250c%s\u2510\n", border)
	for _, line := range strings.Split(text, "\n") {
		if len(line) < width {
			line += strings.Repeat(" ", width-len(line))
		}
		fmt.Fprintf(&b, "    \u2502%s\u2502\n", line)
	}
	fmt.Fprintf(&b, "    \u2514%s\u2518", border)

	return b.String()
}
