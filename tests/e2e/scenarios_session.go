package main

import (
	"fmt"
	"os"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// ThemePersistenceScenario verifies that 'feed theme' writes the state file.
func ThemePersistenceScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "feed-theme-persistence",
		Description: "Verifies the theme toggle is persisted across runs.",
		Tags:        []string{"feed", "state"},
		Steps: []harness.Step{
			harness.NewStep("Toggle the theme", func(ctx *harness.Context) error {
				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(feedBinary, "theme", "toggle")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`feed theme toggle` failed: %w", result.Error)
				}
				return assert.Contains(result.Stdout, "Theme set to dark", "first toggle should switch to dark")
			}),
			harness.NewStep("Read the persisted theme", func(ctx *harness.Context) error {
				data, err := os.ReadFile(stateFile(ctx))
				if err != nil {
					return fmt.Errorf("state file missing: %w", err)
				}
				if err := assert.Contains(string(data), "theme: dark", "state file should hold the theme"); err != nil {
					return err
				}

				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(feedBinary, "theme")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				return assert.Equal("dark\n", result.Stdout, "theme should read back as dark")
			}),
		},
	}
}

// OfflineSessionScenario runs a session without a channel. Stdin is empty, so
// the session renders its initial state and exits.
func OfflineSessionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "feed-offline-session",
		Description: "Verifies an offline session starts, renders, and exits on EOF.",
		Tags:        []string{"feed", "session"},
		Steps: []harness.Step{
			harness.NewStep("Run 'feed run --offline'", func(ctx *harness.Context) error {
				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(feedBinary, "run", "--offline", "--no-watch")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "offline session should exit cleanly"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Connection: offline", "connection state should render"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Theme: light", "initial theme should render")
			}),
		},
	}
}
