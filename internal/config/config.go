// Package config resolves tmuxtest settings from, in increasing precedence:
// built-in defaults, a YAML settings file, fixture overrides, marker
// overrides, TMUXTEST_* environment variables and bound command-line flags.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the loader.
// The key "assertion.timeout" is read from TMUXTEST_ASSERTION_TIMEOUT.
const EnvPrefix = "TMUXTEST"

// SettingsEnv names a YAML settings file loaded below all overrides.
const SettingsEnv = EnvPrefix + "_SETTINGS"

// Configuration keys.
const (
	KeySocketPath     = "server.socket_path"
	KeyConfigFile     = "server.config_file"
	KeyColors         = "server.colors"
	KeySessionName    = "session.name"
	KeyWindowName     = "session.window_name"
	KeyWindowCommand  = "session.window_command"
	KeyStartDirectory = "session.start_directory"
	KeyWidth          = "session.width"
	KeyHeight         = "session.height"
	KeyHistoryLimit   = "session.history_limit"
	KeyTimeout        = "assertion.timeout"
	KeyDelay          = "assertion.delay"
	KeyDebug          = "debug"
	KeyLogLevel       = "log.level"
)

// Server holds settings for the tmux server.
type Server struct {
	// SocketPath joins an existing server when set; otherwise a dedicated
	// server is started on a generated socket.
	SocketPath string
	// ConfigFile replaces the generated tmux config file.
	ConfigFile string
	// Colors is 256 or 88 to force the matching tmux color flag; 0 leaves
	// detection to tmux.
	Colors int
}

// Session holds settings for the tmux session and its first window.
type Session struct {
	Name           string
	WindowName     string
	WindowCommand  string
	StartDirectory string
	Width          int
	Height         int
	HistoryLimit   int
}

// Assertion holds the retry settings used by comparisons.
type Assertion struct {
	Timeout time.Duration
	Delay   time.Duration
}

// Config is the resolved configuration.
type Config struct {
	Server    Server
	Session   Session
	Assertion Assertion
	Debug     bool
	LogLevel  string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Session: Session{
			Width:        80,
			Height:       24,
			HistoryLimit: 10000,
		},
		Assertion: Assertion{
			Timeout: 2 * time.Second,
			Delay:   500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Error reports a configuration value that could not be resolved.
type Error struct {
	Key   string
	Value any
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: invalid value %v: %v", e.Key, e.Value, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Loader stacks configuration layers. File and override layers apply in
// the order they are added; environment variables and bound flags always
// win over them.
type Loader struct {
	v      *viper.Viper
	layers map[string]any
}

// NewLoader returns a Loader holding the defaults and reading the
// environment.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, layers: make(map[string]any)}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault(KeySocketPath, d.Server.SocketPath)
	v.SetDefault(KeyConfigFile, d.Server.ConfigFile)
	v.SetDefault(KeyColors, d.Server.Colors)

	v.SetDefault(KeySessionName, d.Session.Name)
	v.SetDefault(KeyWindowName, d.Session.WindowName)
	v.SetDefault(KeyWindowCommand, d.Session.WindowCommand)
	v.SetDefault(KeyStartDirectory, d.Session.StartDirectory)
	v.SetDefault(KeyWidth, d.Session.Width)
	v.SetDefault(KeyHeight, d.Session.Height)
	v.SetDefault(KeyHistoryLimit, d.Session.HistoryLimit)

	v.SetDefault(KeyTimeout, d.Assertion.Timeout.Seconds())
	v.SetDefault(KeyDelay, d.Assertion.Delay.Seconds())

	v.SetDefault(KeyDebug, d.Debug)
	v.SetDefault(KeyLogLevel, d.LogLevel)
}

// ReadFile adds a YAML settings file as an override layer.
func (l *Loader) ReadFile(path string) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("yaml")
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	for _, key := range fv.AllKeys() {
		l.layers[key] = fv.Get(key)
	}
	return nil
}

// Merge adds values, keyed by dotted configuration keys, over every layer
// added so far.
func (l *Loader) Merge(values map[string]any) error {
	for key, value := range values {
		key = strings.ToLower(key)
		if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
			return fmt.Errorf("config: merge: malformed key %q", key)
		}
		l.layers[key] = value
	}
	return nil
}

// BindFlag makes a command-line flag the highest precedence source for key
// once the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("config: bind %s: no such flag", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load resolves every key into a Config.
func (l *Loader) Load() (*Config, error) {
	if len(l.layers) > 0 {
		if err := l.v.MergeConfigMap(Nest(l.layers)); err != nil {
			return nil, fmt.Errorf("config: merge: %w", err)
		}
	}

	r := resolver{v: l.v}

	cfg := &Config{
		Server: Server{
			SocketPath: r.string(KeySocketPath),
			ConfigFile: r.string(KeyConfigFile),
			Colors:     r.int(KeyColors),
		},
		Session: Session{
			Name:           r.string(KeySessionName),
			WindowName:     r.string(KeyWindowName),
			WindowCommand:  r.string(KeyWindowCommand),
			StartDirectory: r.string(KeyStartDirectory),
			Width:          r.int(KeyWidth),
			Height:         r.int(KeyHeight),
			HistoryLimit:   r.int(KeyHistoryLimit),
		},
		Assertion: Assertion{
			Timeout: r.seconds(KeyTimeout),
			Delay:   r.seconds(KeyDelay),
		},
		Debug:    r.bool(KeyDebug),
		LogLevel: r.string(KeyLogLevel),
	}
	if r.err != nil {
		return nil, r.err
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, &Error{Key: KeyLogLevel, Value: cfg.LogLevel, Err: err}
	}
	switch cfg.Server.Colors {
	case 0, 88, 256:
	default:
		return nil, &Error{Key: KeyColors, Value: cfg.Server.Colors, Err: fmt.Errorf("must be 0, 88 or 256")}
	}

	return cfg, nil
}

// resolver keeps the first conversion error so Load reads as a flat list.
type resolver struct {
	v   *viper.Viper
	err error
}

func (r *resolver) fail(key string, value any, err error) {
	if r.err == nil {
		r.err = &Error{Key: key, Value: value, Err: err}
	}
}

func (r *resolver) string(key string) string {
	raw := r.v.Get(key)
	s, err := cast.ToStringE(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return s
}

func (r *resolver) int(key string) int {
	raw := r.v.Get(key)
	n, err := cast.ToIntE(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return n
}

func (r *resolver) bool(key string) bool {
	raw := r.v.Get(key)
	b, err := cast.ToBoolE(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return b
}

func (r *resolver) seconds(key string) time.Duration {
	raw := r.v.Get(key)
	d, err := ParseSeconds(raw)
	if err != nil {
		r.fail(key, raw, err)
	}
	return d
}

// ParseSeconds converts a number of seconds into a Duration. Numbers are
// taken as seconds; strings may hold a number of seconds ("0.5") or a Go
// duration ("500ms"). Sign is preserved: rejecting negative values is left
// to whoever uses the duration.
func ParseSeconds(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSeconds(f)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("not a number of seconds: %q", v)
		}
		return d, nil
	case nil:
		return 0, fmt.Errorf("not a number of seconds: <nil>")
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("not a number of seconds: %v", raw)
	}
	return fromSeconds(f)
}

func fromSeconds(f float64) (time.Duration, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number of seconds: %v", f)
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}

// Nest turns dotted keys into the nested maps viper merges.
func Nest(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := m[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				m[p] = child
			}
			m = child
		}
		m[parts[len(parts)-1]] = value
	}
	return out
}

// Settings returns cfg as nested maps keyed like the settings file, with
// durations in seconds.
func (c *Config) Settings() map[string]any {
	return Nest(map[string]any{
		KeySocketPath:     c.Server.SocketPath,
		KeyConfigFile:     c.Server.ConfigFile,
		KeyColors:         c.Server.Colors,
		KeySessionName:    c.Session.Name,
		KeyWindowName:     c.Session.WindowName,
		KeyWindowCommand:  c.Session.WindowCommand,
		KeyStartDirectory: c.Session.StartDirectory,
		KeyWidth:          c.Session.Width,
		KeyHeight:         c.Session.Height,
		KeyHistoryLimit:   c.Session.HistoryLimit,
		KeyTimeout:        c.Assertion.Timeout.Seconds(),
		KeyDelay:          c.Assertion.Delay.Seconds(),
		KeyDebug:          c.Debug,
		KeyLogLevel:       c.LogLevel,
	})
}
