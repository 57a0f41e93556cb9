package main

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// ConfigLayeringScenario verifies that project config overrides global config.
func ConfigLayeringScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "feed-config-layering",
		Description: "Verifies that global and project configs are merged correctly.",
		Tags:        []string{"feed", "config"},
		Steps: []harness.Step{
			harness.NewStep("Setup layered configuration and verify merge", func(ctx *harness.Context) error {
				projectDir := ctx.NewDir("feed-project")

				globalYAML := `user:
  id: global-user
  name: Global User
channel:
  max_attempts: 9
`
				if err := fs.WriteString(filepath.Join(globalConfigDir(ctx), "feed.yml"), globalYAML); err != nil {
					return err
				}

				projectYAML := `user:
  id: project-user
channel:
  url: ws://localhost:8787/ws
`
				if err := fs.WriteString(filepath.Join(projectDir, "feed.yml"), projectYAML); err != nil {
					return err
				}

				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(feedBinary, "config").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`feed config` failed: %w", result.Error)
				}

				output := result.Stdout
				if err := assert.Contains(output, "id: project-user", "project user id should win"); err != nil {
					return err
				}
				if err := assert.Contains(output, "name: Global User", "global name should survive"); err != nil {
					return err
				}
				if err := assert.Contains(output, "max_attempts: 9", "global channel settings should survive"); err != nil {
					return err
				}
				return assert.Contains(output, "url: ws://localhost:8787/ws", "project channel url should be used")
			}),
		},
	}
}

// ConfigTOMLScenario verifies that feed.toml is read with ${VAR:-default} expansion.
func ConfigTOMLScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "feed-config-toml",
		Description: "Verifies TOML project config with environment expansion.",
		Tags:        []string{"feed", "config"},
		Steps: []harness.Step{
			harness.NewStep("Load feed.toml", func(ctx *harness.Context) error {
				projectDir := ctx.NewDir("toml-project")
				tomlConfig := `[user]
id = "${FEED_E2E_USER:-toml-user}"

[notifications]
ttl = "7s"
`
				if err := fs.WriteString(filepath.Join(projectDir, "feed.toml"), tomlConfig); err != nil {
					return err
				}

				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(feedBinary, "config").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`feed config` failed: %w", result.Error)
				}

				if err := assert.Contains(result.Stdout, "# Source: "+filepath.Join(projectDir, "feed.toml"), "source should be the toml file"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "id: toml-user", "default should apply when the variable is unset"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "ttl: 7s", "ttl should be read")
			}),
		},
	}
}

// ConfigInvalidScenario verifies that an invalid value fails with a field hint.
func ConfigInvalidScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "feed-config-invalid",
		Description: "Verifies validation errors name the offending field.",
		Tags:        []string{"feed", "config"},
		Steps: []harness.Step{
			harness.NewStep("Reject a bad channel url", func(ctx *harness.Context) error {
				projectDir := ctx.NewDir("invalid-project")
				if err := fs.WriteString(filepath.Join(projectDir, "feed.yml"), "channel:\n  url: http://example.com\n"); err != nil {
					return err
				}

				feedBinary, err := findFeedBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(feedBinary, "config").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(1, result.ExitCode, "invalid config should exit with 1"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "'channel.url'", "error should name the field")
			}),
		},
	}
}
