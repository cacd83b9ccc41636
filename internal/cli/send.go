package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		target  string
		noEnter bool
		literal bool
	)

	cmd := &cobra.Command{
		Use:   "send KEYS...",
		Short: "Send keys to a pane, followed by Enter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd, map[string]string{})
			if err != nil {
				return err
			}
			r, err := a.runner(cfg)
			if err != nil {
				return err
			}

			sendArgs := []string{"send-keys", "-t", target}
			if literal {
				sendArgs = append(sendArgs, "-l", strings.Join(args, " "))
			} else {
				sendArgs = append(sendArgs, args...)
			}
			if _, err := r.Run(sendArgs...); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			if !noEnter {
				if _, err := r.Run("send-keys", "-t", target, "Enter"); err != nil {
					return fmt.Errorf("send: %w", err)
				}
			}

			a.log.WithField("target", target).Debugf("sent %q", args)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "target pane, as session, session:window or pane id")
	_ = cmd.MarkFlagRequired("target")
	cmd.Flags().BoolVar(&noEnter, "no-enter", false, "do not press Enter after the keys")
	cmd.Flags().BoolVarP(&literal, "literal", "l", false, "send the arguments as literal text")
	return cmd
}
