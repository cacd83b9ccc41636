package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 2*time.Second, cfg.Assertion.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Assertion.Delay)
	assert.Equal(t, 80, cfg.Session.Width)
	assert.Equal(t, 24, cfg.Session.Height)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte(`
session:
  width: 100
  height: 30
  window_command: /bin/sh
assertion:
  timeout: 4
`), 0o644))

	l := NewLoader()
	require.NoError(t, l.ReadFile(settings))
	require.NoError(t, l.Merge(map[string]any{KeyWidth: 110, KeyDelay: 0.25}))
	require.NoError(t, l.Merge(map[string]any{KeyWidth: 120}))

	t.Setenv("TMUXTEST_SESSION_HEIGHT", "50")

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Session.Width, "marker layer beats fixture and file")
	assert.Equal(t, 50, cfg.Session.Height, "environment beats file")
	assert.Equal(t, "/bin/sh", cfg.Session.WindowCommand, "file beats defaults")
	assert.Equal(t, 4*time.Second, cfg.Assertion.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Assertion.Delay)
}

func TestLoadEnvBeatsMerge(t *testing.T) {
	t.Setenv("TMUXTEST_ASSERTION_TIMEOUT", "7")
	t.Setenv("TMUXTEST_DEBUG", "true")

	l := NewLoader()
	require.NoError(t, l.Merge(map[string]any{KeyTimeout: 1}))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.Assertion.Timeout)
	assert.True(t, cfg.Debug)
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv("TMUXTEST_ASSERTION_DELAY", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("delay", "", "")
	require.NoError(t, flags.Parse([]string{"--delay", "100ms"}))

	l := NewLoader()
	require.NoError(t, l.BindFlag(KeyDelay, flags.Lookup("delay")))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Assertion.Delay)
}

func TestLoadUnsetFlagKeepsLowerLayers(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("delay", "", "")
	require.NoError(t, flags.Parse(nil))

	l := NewLoader()
	require.NoError(t, l.Merge(map[string]any{KeyDelay: 1.5}))
	require.NoError(t, l.BindFlag(KeyDelay, flags.Lookup("delay")))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Assertion.Delay)
}

func TestLoadRejectsNonNumericTimeout(t *testing.T) {
	t.Setenv("TMUXTEST_ASSERTION_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KeyTimeout, cfgErr.Key)
	assert.Equal(t, "soon", cfgErr.Value)
}

func TestLoadRejectsBadColors(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.Merge(map[string]any{KeyColors: 16}))

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyColors)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Setenv("TMUXTEST_LOG_LEVEL", "chatty")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyLogLevel)
}

func TestReadFileMissing(t *testing.T) {
	err := NewLoader().ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBindFlagNil(t *testing.T) {
	assert.Error(t, NewLoader().BindFlag(KeyDelay, nil))
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    time.Duration
		wantErr bool
	}{
		{name: "int", raw: 2, want: 2 * time.Second},
		{name: "float", raw: 0.5, want: 500 * time.Millisecond},
		{name: "numeric string", raw: "1.5", want: 1500 * time.Millisecond},
		{name: "duration string", raw: "250ms", want: 250 * time.Millisecond},
		{name: "duration", raw: 3 * time.Second, want: 3 * time.Second},
		{name: "negative kept", raw: -1, want: -time.Second},
		{name: "word", raw: "later", wantErr: true},
		{name: "nan", raw: "NaN", wantErr: true},
		{name: "nil", raw: nil, wantErr: true},
		{name: "slice", raw: []string{"1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeconds(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNest(t *testing.T) {
	got := Nest(map[string]any{
		"assertion.timeout": 1,
		"assertion.delay":   2,
		"debug":             true,
	})

	assert.Equal(t, map[string]any{
		"assertion": map[string]any{"timeout": 1, "delay": 2},
		"debug":     true,
	}, got)
}

func TestSettings(t *testing.T) {
	s := Default().Settings()

	assertion, ok := s["assertion"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2.0, assertion["timeout"])
	assert.Equal(t, 0.5, assertion["delay"])
}
