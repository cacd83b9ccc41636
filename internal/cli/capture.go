package cli

import (
	"fmt"
	"strings"

	"github.com/rockandska/tmuxtest/internal/tmuxcli"
	"github.com/spf13/cobra"
)

func newCaptureCmd(a *app) *cobra.Command {
	var (
		target string
		row    int
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Print the visible content of a pane",
		Long: `Prints the rows of the target pane with trailing blank rows removed.
With --row, prints only that row; negative rows count from the end and rows
outside the capture print as an empty line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, map[string]string{})
			if err != nil {
				return err
			}
			r, err := a.runner(cfg)
			if err != nil {
				return err
			}

			rows, err := r.CapturePane(target)
			if err != nil {
				return fmt.Errorf("capture: %w", err)
			}
			if cmd.Flags().Changed("row") {
				rows = []string{tmuxcli.Row(rows, row)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(rows, "\n"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "target pane, as session, session:window or pane id")
	_ = cmd.MarkFlagRequired("target")
	cmd.Flags().IntVar(&row, "row", 0, "print only this row")
	return cmd
}
