// Package tmuxtest tests terminal programs by driving them inside tmux.
//
// tmuxtest starts a program in a tmux session, sends it keystrokes, and
// compares what the pane shows against expected text through the standard
// [testing.TB] interface.
//
// # Quick Start
//
//	func TestMyApp(t *testing.T) {
//		term := tmuxtest.Open(t, tmuxtest.WithWindowCommand("./my-app"))
//		tmuxtest.Contains(t, term.Screen(), "Welcome")
//		term.SendKeys("hello")
//		tmuxtest.Equal(t, term.Row(1), "echo: hello")
//	}
//
// Cleanup is automatic through t.Cleanup; there is no Close method.
//
// # Polling Comparisons
//
// Terminal output changes on its own, so a single capture compared once is
// flaky. [Terminal.Screen] and [Terminal.Row] return an [Output]: a value
// seeded by one capture whose comparisons ([Output.Equals],
// [Output.NotEquals], [Output.Contains], [Output.Satisfies]) each re-capture
// and retry under a [Policy] until they hold or the timeout passes.
//
// A timeout is a false result, not an error. Errors are reserved for a
// negative timeout or delay ([ConfigurationError]) and for a failing capture
// ([CaptureError]); neither is retried.
//
// After a comparison, [Output.Value] and [Output.String] hold the last
// capture, so failure messages show what the screen looked like at the
// deadline. The assertion helpers [Equal], [NotEqual], [Contains], and
// [Match] render that through [Explain].
//
// # Configuration
//
// Settings are resolved once per Terminal, lowest precedence first:
//
//   - built-in defaults (80x24 window, 2s timeout, 0.5s delay)
//   - a YAML settings file from [WithSettingsFile] or TMUXTEST_SETTINGS
//   - options given to [NewSuite]
//   - options given to [Open] or [Suite.Open]
//   - environment variables such as TMUXTEST_ASSERTION_TIMEOUT
//
// Durations in files and the environment are seconds, for example "0.5".
//
// # Session Lifecycle
//
// Without [WithSocketPath], [Open] starts a dedicated tmux server on a
// unique socket under os.TempDir and kills it during cleanup. With it, the
// session joins an existing server and cleanup kills only that session.
//
// The generated tmux config sets remain-on-exit on, status off, and the
// configured history-limit. [WithTmuxConfigFile] replaces it.
//
// # Debugging
//
// With [WithDebug] or TMUXTEST_DEBUG=1, every interaction is logged together
// with the command that attaches to the session, and the test waits for
// Enter before continuing. See [Terminal.Debug].
//
// # Snapshots
//
// [Terminal.MatchSnapshot] and [MatchSnapshot] compare the screen to golden
// files under testdata. Set TMUXTEST_UPDATE=1 to create or update them.
//
// # Requirements
//
//   - Go 1.24+
//   - tmux 3.0+
//   - Linux or macOS
//
// tmux is resolved in this order:
//
//   - [WithTmuxPath]
//   - TMUXTEST_TMUX
//   - PATH lookup for tmux
package tmuxtest
