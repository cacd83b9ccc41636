package tmuxtest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	xterm "golang.org/x/term"
)

// debugger pauses a test between tmux interactions so a developer can
// watch the session from another terminal.
type debugger struct {
	enabled bool
	prompt  *bufio.Reader
	log     *logrus.Entry
	started bool
	stopped bool
}

// newDebugger waits on prompt, or on stdin when prompt is nil and stdin
// is a terminal. With neither it only logs.
func newDebugger(enabled bool, prompt io.Reader, log *logrus.Entry) *debugger {
	d := &debugger{enabled: enabled, log: debugLog(log)}
	if prompt == nil && xterm.IsTerminal(int(os.Stdin.Fd())) {
		prompt = os.Stdin
	}
	if prompt != nil {
		d.prompt = bufio.NewReader(prompt)
	}
	return d
}

// debugLog returns log, or a copy writing to the same output at Info when
// log's level would hide the debug channel.
func debugLog(log *logrus.Entry) *logrus.Entry {
	if log.Logger.IsLevelEnabled(logrus.InfoLevel) {
		return log
	}
	l := logrus.New()
	l.SetOutput(log.Logger.Out)
	l.SetFormatter(log.Logger.Formatter)
	l.SetLevel(logrus.InfoLevel)
	return l.WithFields(log.Data)
}

func (d *debugger) wait() {
	if d.prompt == nil || d.stopped {
		return
	}
	d.log.Info("Press enter to continue....")
	if _, err := d.prompt.ReadString('\n'); err != nil {
		// EOF or a closed terminal: keep logging, stop blocking.
		d.stopped = true
	}
}

// Debug logs msg and waits for Enter when the debug channel is on. The
// first call also logs the command that attaches to the test's session.
func (term *Terminal) Debug(msg string) {
	d := term.debugger
	if d == nil || !d.enabled {
		return
	}

	if !d.started {
		d.started = true
		d.log.Info("tmuxtest started with DEBUG; attach from another terminal with:")
		d.log.Info(term.AttachCommand())
		d.wait()
	}

	d.log.Info(strings.TrimSpace(msg))
	d.wait()
}

// AttachCommand returns a shell command that attaches to the test's session
// at the current window size.
func (term *Terminal) AttachCommand() string {
	cmd := fmt.Sprintf("%s -S %s attach -t %s", term.runner.TmuxPath(), shellQuote(term.SocketPath()), shellQuote(term.session))
	width, height, err := windowSize(term.runner, term.pane)
	if err != nil {
		return cmd
	}
	return fmt.Sprintf(`%s \; resize-window -x %d -y %d`, cmd, width, height)
}
