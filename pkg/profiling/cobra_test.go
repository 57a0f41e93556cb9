package profiling

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCobraProfiler(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")

	root := &cobra.Command{Use: "feed"}
	ran := false
	root.AddCommand(&cobra.Command{
		Use: "paths",
		Run: func(*cobra.Command, []string) { ran = true },
	})
	NewCobraProfiler().Attach(root)

	var errOut bytes.Buffer
	root.SetErr(&errOut)
	root.SetArgs([]string{"paths", "--cpu-profile", cpu, "--mem-profile", mem, "--timing"})
	require.NoError(t, root.Execute())

	assert.True(t, ran)
	for _, path := range []string{cpu, mem} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Contains(t, errOut.String(), "CPU profile written to "+cpu)
	assert.Contains(t, errOut.String(), "Memory profile written to "+mem)
	assert.Contains(t, errOut.String(), "feed paths took")
}

func TestCobraProfiler_BadPath(t *testing.T) {
	root := &cobra.Command{Use: "feed", Run: func(*cobra.Command, []string) {}}
	NewCobraProfiler().Attach(root)
	root.SilenceUsage = true
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--cpu-profile", filepath.Join(t.TempDir(), "missing", "cpu.pprof")})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not create CPU profile")
}
