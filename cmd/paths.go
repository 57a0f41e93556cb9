package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/feed/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the XDG-compliant paths used by feed.
type PathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	CacheDir  string `json:"cache_dir"`
	StateFile string `json:"state_file"`
	LogFile   string `json:"log_file"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by feed",
		Long: `Print the XDG-compliant paths used by feed as JSON.

- config_dir: global feed.yml or feed.toml
- state_dir: preference file, logs, and the mock peer pid file
- cache_dir: regenerable data
- state_file: persisted theme and other preferences
- log_file: default structured log file

Set FEED_HOME to keep everything under one directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				CacheDir:  paths.CacheDir(),
				StateFile: paths.StateFile(),
				LogFile:   paths.LogFile(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}

	return cmd
}
