// Package cli implements the tmuxtest command, which captures, drives, and
// waits on panes of a running tmux server from the shell.
package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rockandska/tmuxtest/internal/config"
	"github.com/rockandska/tmuxtest/internal/tmuxcli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	settingsFile string
	verbose      bool
	noColor      bool

	log *logrus.Logger
}

// Execute runs the tmuxtest command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the tmuxtest command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tmuxtest",
		Short: "Inspect and drive tmux panes the way tmuxtest tests do",
		Long: `tmuxtest talks to a running tmux server. It captures panes, sends keys,
and waits for pane content with the same polling comparisons the Go
package uses in tests.

Settings come from defaults, a YAML settings file, TMUXTEST_* environment
variables (a .env file is loaded if present), then flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env file if it exists
			_ = godotenv.Load()

			a.log = newLogger(cmd.ErrOrStderr(), a.verbose)
			color.NoColor = color.NoColor || a.noColor || !isTerminal(cmd.OutOrStdout())
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("socket-path", "S", "", "tmux server socket (default $"+config.EnvPrefix+"_SERVER_SOCKET_PATH)")
	flags.StringVar(&a.settingsFile, "settings", "", "YAML settings file (default $"+config.SettingsEnv+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newCaptureCmd(a),
		newSendCmd(a),
		newWaitCmd(a),
		newConfigCmd(a),
	)
	return root
}

// loadConfig resolves settings with the command's flags bound over the
// environment. binds maps configuration keys to flag names.
func (a *app) loadConfig(cmd *cobra.Command, binds map[string]string) (*config.Config, error) {
	loader := config.NewLoader()

	settings := a.settingsFile
	if settings == "" {
		settings = os.Getenv(config.SettingsEnv)
	}
	if settings != "" {
		if err := loader.ReadFile(settings); err != nil {
			return nil, err
		}
	}

	binds[config.KeySocketPath] = "socket-path"
	for key, name := range binds {
		if err := loader.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if !a.verbose {
		level, _ := logrus.ParseLevel(cfg.LogLevel)
		a.log.SetLevel(level)
	}
	return cfg, nil
}

// runner connects to the server named by cfg.
func (a *app) runner(cfg *config.Config) (*tmuxcli.Runner, error) {
	if cfg.Server.SocketPath == "" {
		return nil, fmt.Errorf("no tmux socket: use --socket-path or $%s_SERVER_SOCKET_PATH", config.EnvPrefix)
	}

	tmuxPath := os.Getenv(config.EnvPrefix + "_TMUX")
	if tmuxPath == "" {
		found, err := exec.LookPath("tmux")
		if err != nil {
			return nil, fmt.Errorf("tmux not found: %w", err)
		}
		tmuxPath = found
	}

	r := tmuxcli.New(tmuxPath, cfg.Server.SocketPath)
	r.SetColors(cfg.Server.Colors)
	a.log.WithFields(logrus.Fields{"tmux": tmuxPath, "socket": cfg.Server.SocketPath}).Debug("using tmux server")
	return r, nil
}

// newLogger creates a logger writing to w, at DebugLevel when verbose.
func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
