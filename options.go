package tmuxtest

import (
	"io"
	"time"

	"github.com/rockandska/tmuxtest/internal/config"
	"github.com/sirupsen/logrus"
)

type options struct {
	values       map[string]any
	tmuxPath     string
	env          []string
	settingsFile string
	logger       *logrus.Logger
	prompt       io.Reader
}

func newOptions(opts []Option) options {
	o := options{values: make(map[string]any)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// overlay returns o with every non-configuration field that top sets
// replacing its own.
func (o options) overlay(top options) options {
	if top.tmuxPath != "" {
		o.tmuxPath = top.tmuxPath
	}
	if top.settingsFile != "" {
		o.settingsFile = top.settingsFile
	}
	if top.logger != nil {
		o.logger = top.logger
	}
	if top.prompt != nil {
		o.prompt = top.prompt
	}
	o.env = append(append([]string(nil), o.env...), top.env...)
	return o
}

// Option configures a Terminal created by Open or Suite.Open.
type Option func(*options)

func setting(key string, value any) Option {
	return func(o *options) {
		o.values[key] = value
	}
}

// WithWindowCommand sets the shell command run in the session's window.
// The default is tmux's default-shell.
func WithWindowCommand(command string) Option {
	return setting(config.KeyWindowCommand, command)
}

// WithSize sets the window dimensions (columns x rows).
func WithSize(width, height int) Option {
	return func(o *options) {
		o.values[config.KeyWidth] = width
		o.values[config.KeyHeight] = height
	}
}

// WithStartDirectory sets the working directory of the window command.
func WithStartDirectory(dir string) Option {
	return setting(config.KeyStartDirectory, dir)
}

// WithSessionName sets the tmux session name. The default is derived from
// the test name.
func WithSessionName(name string) Option {
	return setting(config.KeySessionName, name)
}

// WithWindowName sets the name of the session's first window.
func WithWindowName(name string) Option {
	return setting(config.KeyWindowName, name)
}

// WithSocketPath joins the tmux server listening on path instead of
// starting a dedicated one. Cleanup then kills only the test's session.
func WithSocketPath(path string) Option {
	return setting(config.KeySocketPath, path)
}

// WithTmuxConfigFile starts tmux with the given config file instead of the
// generated one.
func WithTmuxConfigFile(path string) Option {
	return setting(config.KeyConfigFile, path)
}

// WithColors forces 256 or 88 colors.
func WithColors(colors int) Option {
	return setting(config.KeyColors, colors)
}

// WithHistoryLimit sets the scrollback history limit in the generated tmux
// config.
func WithHistoryLimit(limit int) Option {
	return setting(config.KeyHistoryLimit, limit)
}

// WithAssertTimeout sets how long comparisons keep polling.
func WithAssertTimeout(d time.Duration) Option {
	return setting(config.KeyTimeout, d)
}

// WithAssertDelay sets the pause between two polls of a comparison.
func WithAssertDelay(d time.Duration) Option {
	return setting(config.KeyDelay, d)
}

// WithDebug turns the interactive debug channel on or off. See
// Terminal.Debug.
func WithDebug(enabled bool) Option {
	return setting(config.KeyDebug, enabled)
}

// WithEnv appends environment variables for the window command.
// Each entry should be in "KEY=VALUE" format.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

// WithTmuxPath sets the path to the tmux binary. Defaults to "tmux"
// (resolved via $PATH). The TMUXTEST_TMUX environment variable can also
// be used as a fallback before the default.
func WithTmuxPath(path string) Option {
	return func(o *options) {
		o.tmuxPath = path
	}
}

// WithSettingsFile loads a YAML settings file below every other override.
// TMUXTEST_SETTINGS is used when no file is given.
func WithSettingsFile(path string) Option {
	return func(o *options) {
		o.settingsFile = path
	}
}

// WithLogger sets the logger used for lifecycle and debug messages.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPrompt sets where the debug channel waits for Enter. By default it
// reads stdin when stdin is a terminal and does not wait otherwise.
func WithPrompt(r io.Reader) Option {
	return func(o *options) {
		o.prompt = r
	}
}

// WaitOption configures a single Screen, Row, or WaitExit call.
type WaitOption func(*waitOptions)

type waitOptions struct {
	timeout    time.Duration
	timeoutSet bool
	delay      time.Duration
	delaySet   bool
}

// WithinTimeout overrides the assertion timeout for a single call.
func WithinTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = d
		o.timeoutSet = true
	}
}

// WithDelay overrides the assertion delay for a single call.
func WithDelay(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.delay = d
		o.delaySet = true
	}
}

// SendOption configures a single SendKeys call.
type SendOption func(*sendOptions)

type sendOptions struct {
	enter           bool
	literal         bool
	suppressHistory bool
}

// WithoutEnter sends the keys without a trailing Enter.
func WithoutEnter() SendOption {
	return func(o *sendOptions) {
		o.enter = false
	}
}

// Literal sends the keys with send-keys -l, so key names such as "Enter"
// are typed as text.
func Literal() SendOption {
	return func(o *sendOptions) {
		o.literal = true
	}
}

// SuppressHistory prefixes the keys with a space, which keeps them out of
// the history of shells configured to ignore such lines.
func SuppressHistory() SendOption {
	return func(o *sendOptions) {
		o.suppressHistory = true
	}
}
