package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")

	ran := false
	root := &cobra.Command{Use: "notify"}
	root.AddCommand(&cobra.Command{Use: "run", Run: func(*cobra.Command, []string) { ran = true }})
	NewCobraProfiler().Attach(root)

	root.SetArgs([]string{"run", "--cpu-profile", cpu, "--mem-profile", mem})
	require.NoError(t, root.Execute())
	assert.True(t, ran)

	for _, path := range []string{cpu, mem} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestNoFlagsNoFiles(t *testing.T) {
	p := NewCobraProfiler()
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
}
