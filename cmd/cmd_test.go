package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/internal/journal"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/testutil"
)

// isolate keeps tests away from the user's configuration and state.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NOTIFY_HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("NOTIFY_LOG_LEVEL", "error")
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func line(kinds, path string) string {
	return `{ "type": "` + kinds + `", "file": "` + path + `", "date": "1700000000" }` + "\n"
}

func TestReplayStdin(t *testing.T) {
	isolate(t)
	trace := line("DELETE", "/w/gone") +
		line("MOVED_FROM", "/w/a") +
		line("MOVED_TO", "/w/b") +
		line("OPEN", "/w/c") +
		line("MODIFY", "/w/c") +
		line("CLOSE_WRITE,CLOSE", "/w/c")

	out, err := execute(t, trace, "replay", "-")
	require.NoError(t, err)
	assert.Equal(t, "unlink /w/gone\nmove /w/a -> /w/b\nchange /w/c\n", out)
}

func TestReplayPendingMoveAtEnd(t *testing.T) {
	isolate(t)
	out, err := execute(t, line("MOVED_FROM", "/w/left"), "replay", "-")
	require.NoError(t, err)
	assert.Equal(t, "unlink /w/left\n", out)
}

func TestReplayTraceFileJSON(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "trace.log", line("DELETE", "/w/gone"))

	out, err := execute(t, "", "replay", "--json", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"type":"event"`)
	assert.Contains(t, out, `"/w/gone"`)
	assert.Contains(t, out, `"type":"exit"`)
}

func TestReplayExcludeGlob(t *testing.T) {
	isolate(t)
	trace := line("DELETE", "/w/a.swp") + line("DELETE", "/w/a.txt")
	out, err := execute(t, trace, "replay", "--exclude-glob", "**/*.swp", "-")
	require.NoError(t, err)
	assert.Equal(t, "unlink /w/a.txt\n", out)
}

func TestWatchRequiresPath(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")
}

func TestApplyWatchFlags(t *testing.T) {
	cmd := NewWatchCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--no-recursive", "--exclude", `\.git`, "--exclude-glob", "build",
		"--event", "modify", "--touch-attributes", "--binary", "/opt/inotifywait",
	}))
	cfg := config.Default()
	cfg.ExcludeGlobs = []string{"**/*.tmp"}
	applyWatchFlags(cmd, cfg, []string{"/src"})

	assert.Equal(t, "/src", cfg.Path)
	assert.False(t, cfg.IsRecursive())
	assert.Equal(t, []string{`\.git`}, cfg.ExcludePatterns)
	assert.Equal(t, []string{"**/*.tmp", "build"}, cfg.ExcludeGlobs)
	assert.Equal(t, []string{"modify"}, cfg.RawKindFilter)
	assert.True(t, cfg.TouchGeneratesAttributes)
	assert.Equal(t, "/opt/inotifywait", cfg.Source.Binary)
	assert.False(t, cfg.WatchDirectory)
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteConfig(t, dir, "path: /srv\nexclude_globs: ['**/*.swp']\n")

	out, err := execute(t, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "path: /srv")
	assert.Contains(t, out, "binary: inotifywait")

	out, err = execute(t, "", "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := testutil.WriteFile(t, dir, "bad.yml", "buffer_size: -1\n")
	_, err = execute(t, "", "config", "validate", bad)
	assert.Error(t, err)

	out, err = execute(t, "", "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "Notify Configuration")
}

func TestHistory(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "journal.db")
	cfgPath := testutil.WriteConfig(t, dir, "journal:\n  path: "+dbPath+"\n")

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	stats := events.Stats{ObservedAt: time.Unix(1700000000, 0)}
	require.NoError(t, j.Append(context.Background(), "session-1", events.NewAdd("/w/a", stats)))
	require.NoError(t, j.Append(context.Background(), "session-1", events.NewUnlink("/w/b", stats)))
	require.NoError(t, j.Close())

	out, err := execute(t, "", "history", "--config", cfgPath, "--kind", "unlink")
	require.NoError(t, err)
	assert.Contains(t, out, "/w/b")
	assert.NotContains(t, out, "/w/a")

	out, err = execute(t, "", "history", "--config", cfgPath, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"session": "session-1"`)

	_, err = execute(t, "", "history", "--config", cfgPath, "--kind", "bogus")
	assert.Error(t, err)
}

func TestServeStatusStopped(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "serve", "status")
	assert.ErrorIs(t, err, ErrSilentExit)
	assert.Contains(t, out, "Stopped")
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "notify")
}

func TestUnknownFlag(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "replay", "--no-such-flag", "-")
	assert.ErrorIs(t, err, ErrSilentExit)
	assert.Contains(t, out, "unknown flag: --no-such-flag")
	assert.Contains(t, out, "notify replay --help")
}

func TestReplayLargeTraceKeepsEveryEvent(t *testing.T) {
	isolate(t)
	const n = 5000
	var trace, want strings.Builder
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("/w/f%d", i)
		trace.WriteString(line("DELETE", path))
		want.WriteString("unlink " + path + "\n")
	}

	out, err := execute(t, trace.String(), "replay", "-")
	require.NoError(t, err)
	assert.Equal(t, n, strings.Count(out, "\n"))
	assert.Equal(t, want.String(), out)
}
