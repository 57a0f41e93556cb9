package cmd

import (
	"fmt"

	"github.com/grovetools/feed/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display the merged configuration",
		Long: `Shows the configuration a session would run with, built by merging:
1. Global config ($FEED_HOME/config/feed.yml or ~/.config/feed/feed.yml)
2. Project config (feed.yml or feed.toml in this or a parent directory)
3. FEED_* environment variables
Defaults fill everything left unset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if path, _ := cli.InitConfig(cli.GetOptions(cmd).ConfigFile); path != "" {
				fmt.Fprintf(w, "# Source: %s\n", path)
			} else {
				fmt.Fprintln(w, "# No config file found, showing defaults")
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(w, string(data))
			return nil
		},
	}
	return cmd
}
