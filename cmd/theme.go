package cmd

import (
	"fmt"

	"github.com/grovetools/feed/cli"
	"github.com/grovetools/feed/logging"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/state"
	"github.com/spf13/cobra"
)

// NewThemeCmd reads or changes the persisted theme. Running sessions that
// watch the preference file pick up the change.
func NewThemeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the persisted theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{models.ThemeLight, models.ThemeDark, "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			prefs := state.Default()
			if cfg.Session.StateFile != "" {
				prefs = state.Open(cfg.Session.StateFile)
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())

			current, err := prefs.Theme()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), current)
				return nil
			}

			next := args[0]
			switch next {
			case "toggle":
				next = models.ThemeDark
				if current == models.ThemeDark {
					next = models.ThemeLight
				}
			case models.ThemeLight, models.ThemeDark:
			default:
				return fmt.Errorf("unknown theme %q: use light, dark, or toggle", next)
			}

			if err := prefs.SetTheme(next); err != nil {
				return err
			}
			pretty.Success(fmt.Sprintf("Theme set to %s", next))
			pretty.Path("Preferences", prefs.Path())
			return nil
		},
	}
	return cmd
}
