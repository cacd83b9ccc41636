package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rockandska/tmuxtest"
	"github.com/rockandska/tmuxtest/internal/config"
	"github.com/rockandska/tmuxtest/internal/tmuxcli"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// condition is one --equals, --not-equals or --contains flag.
type condition struct {
	op   tmuxtest.Op
	flag string
	text string
}

func (c condition) check(out *tmuxtest.Output) (bool, error) {
	switch c.op {
	case tmuxtest.OpEqual:
		return out.Equals(c.text)
	case tmuxtest.OpNotEqual:
		return out.NotEquals(c.text)
	default:
		return out.Contains(c.text)
	}
}

// explain renders a failure with the expected text on the side Explain
// reads it from.
func (c condition) explain(got string) []string {
	if c.op == tmuxtest.OpIn {
		return tmuxtest.Explain(c.op, c.text, got)
	}
	return tmuxtest.Explain(c.op, got, c.text)
}

func newWaitCmd(a *app) *cobra.Command {
	var (
		targets []string
		row     int
	)

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until panes show the expected content",
		Long: `Polls each target pane until its content satisfies the condition or the
timeout passes. Targets are polled concurrently. On timeout the last capture
of each failing pane is explained and the command exits non-zero.

Exactly one of --equals, --not-equals or --contains is required. Timeout
and delay are in seconds and default to the assertion settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cond, err := waitCondition(cmd)
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig(cmd, map[string]string{
				config.KeyTimeout: "timeout",
				config.KeyDelay:   "delay",
			})
			if err != nil {
				return err
			}
			r, err := a.runner(cfg)
			if err != nil {
				return err
			}

			policy := tmuxtest.Policy{Timeout: cfg.Assertion.Timeout, Delay: cfg.Assertion.Delay}
			rowSet := cmd.Flags().Changed("row")

			var (
				mu       sync.Mutex
				failures = make(map[string][]string)
				g        errgroup.Group
			)
			for _, target := range targets {
				target := target
				g.Go(func() error {
					log := a.log.WithField("target", target)
					out, err := tmuxtest.NewOutput(paneCapture(r, target, rowSet, row), policy)
					if err != nil {
						return fmt.Errorf("wait: %s: %w", target, err)
					}
					ok, err := cond.check(out)
					if err != nil {
						return fmt.Errorf("wait: %s: %w", target, err)
					}
					if ok {
						log.Debug("condition met")
						return nil
					}
					log.Debugf("timed out after %v", policy.Timeout)

					mu.Lock()
					failures[target] = cond.explain(out.String())
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if len(failures) == 0 {
				return nil
			}
			w := cmd.OutOrStdout()
			for _, target := range targets {
				if lines, ok := failures[target]; ok {
					printFailure(w, target, cond, lines)
				}
			}
			return fmt.Errorf("wait: %d of %d targets timed out after %v", len(failures), len(targets), policy.Timeout)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&targets, "target", "t", nil, "target pane; repeat to wait on several")
	_ = cmd.MarkFlagRequired("target")
	flags.String("equals", "", "wait until the content equals this text")
	flags.String("not-equals", "", "wait until the content differs from this text")
	flags.String("contains", "", "wait until the content contains this text")
	flags.IntVar(&row, "row", 0, "compare only this row")
	flags.Float64("timeout", 0, "seconds to keep polling")
	flags.Float64("delay", 0, "seconds between two captures")
	cmd.MarkFlagsMutuallyExclusive("equals", "not-equals", "contains")
	cmd.MarkFlagsOneRequired("equals", "not-equals", "contains")
	return cmd
}

func waitCondition(cmd *cobra.Command) (condition, error) {
	for _, c := range []condition{
		{op: tmuxtest.OpEqual, flag: "equals"},
		{op: tmuxtest.OpNotEqual, flag: "not-equals"},
		{op: tmuxtest.OpIn, flag: "contains"},
	} {
		if !cmd.Flags().Changed(c.flag) {
			continue
		}
		text, err := cmd.Flags().GetString(c.flag)
		if err != nil {
			return condition{}, err
		}
		c.text = text
		return c, nil
	}
	return condition{}, errors.New("wait: one of --equals, --not-equals or --contains is required")
}

func paneCapture(r *tmuxcli.Runner, target string, rowSet bool, row int) tmuxtest.CaptureFunc {
	return func() (string, error) {
		rows, err := r.CapturePane(target)
		if err != nil {
			return "", err
		}
		if rowSet {
			return tmuxcli.Row(rows, row), nil
		}
		return strings.Join(rows, "\n"), nil
	}
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	commonColor  = color.New(color.FgHiBlack)
	removedColor = color.New(color.FgRed)
	addedColor   = color.New(color.FgGreen)
)

func printFailure(w io.Writer, target string, cond condition, lines []string) {
	headerColor.Fprintf(w, "%s: %s %q\n", target, cond.flag, cond.text)
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "> "):
			commonColor.Fprintln(w, "  "+line)
		case strings.HasPrefix(line, "- "):
			removedColor.Fprintln(w, "  "+line)
		case strings.HasPrefix(line, "+ "):
			addedColor.Fprintln(w, "  "+line)
		default:
			fmt.Fprintln(w, "  "+line)
		}
	}
}
