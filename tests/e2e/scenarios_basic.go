package main

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "feed-basic-version",
		Tags: []string{"feed", "basic"},
		Steps: []harness.Step{
			harness.NewStep("Run 'feed version'", func(ctx *harness.Context) error {
				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(feedBinary, "version")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "feed version should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Version:", "Output should contain Version"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Platform:", "Output should contain Platform")
			}),
		},
	}
}

// PathsScenario verifies that paths resolve inside the sandboxed HOME.
func PathsScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "feed-paths",
		Description: "Verifies the XDG paths printed by 'feed paths'.",
		Tags:        []string{"feed", "basic"},
		Steps: []harness.Step{
			harness.NewStep("Run 'feed paths'", func(ctx *harness.Context) error {
				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(feedBinary, "paths")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`feed paths` failed: %w", result.Error)
				}

				var paths map[string]string
				if err := json.Unmarshal([]byte(result.Stdout), &paths); err != nil {
					return fmt.Errorf("paths output is not JSON: %w", err)
				}
				if err := assert.Equal(globalConfigDir(ctx), paths["config_dir"], "config dir should be under HOME"); err != nil {
					return err
				}
				return assert.Equal(stateFile(ctx), paths["state_file"], "state file should be under HOME")
			}),
		},
	}
}
