package main

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/grovetools/tend/pkg/harness"
)

// findFeedBinary finds the feed binary under test.
// Build it into ./bin and put that directory on PATH before running.
func findFeedBinary() (string, error) {
	path, err := exec.LookPath("feed")
	if err != nil {
		return "", fmt.Errorf("could not find 'feed' binary in PATH. Run 'go build -o bin/feed ./cmd/feed' and add ./bin to PATH")
	}
	return path, nil
}

// globalConfigDir is where feed looks for feed.yml inside the sandboxed HOME.
func globalConfigDir(ctx *harness.Context) string {
	return filepath.Join(ctx.HomeDir(), ".config", "feed")
}

// stateFile is the preference file inside the sandboxed HOME.
func stateFile(ctx *harness.Context) string {
	return filepath.Join(ctx.HomeDir(), ".local", "state", "feed", "state.yml")
}
