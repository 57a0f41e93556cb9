// Package cmd holds the feed subcommands.
package cmd

import (
	"github.com/grovetools/feed/cli"
	"github.com/grovetools/feed/pkg/profiling"
	"github.com/grovetools/feed/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the feed command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		version.Name,
		"A terminal social feed with live presence and optimistic updates",
	)
	cli.SetVersionTemplate(rootCmd, version.GetInfo())
	profiling.NewCobraProfiler().Attach(rootCmd)

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewMockPeerCmd())
	rootCmd.AddCommand(NewThemeCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewLogsCmd())
	rootCmd.AddCommand(NewPathsCmd())
	rootCmd.AddCommand(cli.NewVersionCommand(version.Name, version.GetInfo()))

	cli.ApplyStyledHelpRecursive(rootCmd)
	return rootCmd
}
