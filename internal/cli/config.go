package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved settings as YAML",
		Long:  `Shows the settings after defaults, the settings file, the environment, and flags are applied.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, map[string]string{})
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg.Settings())
			if err != nil {
				return fmt.Errorf("failed to show config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
