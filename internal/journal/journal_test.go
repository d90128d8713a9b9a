package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/notify/pkg/events"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	at := time.Unix(1700000000, 0).UTC()

	require.NoError(t, j.Append(ctx, "s1", events.NewAdd("/w/a", events.Stats{ObservedAt: at})))
	require.NoError(t, j.Append(ctx, "s1", events.NewMove("/w/a", "/w/b", events.Stats{ObservedAt: at.Add(time.Second)})))
	require.NoError(t, j.Append(ctx, "s2", events.NewUnlink("/w/dir", events.Stats{IsDir: true, ObservedAt: at.Add(2 * time.Second)})))

	all, err := j.Recent(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, events.Add, all[0].Event.Kind)
	assert.Equal(t, at, all[0].Event.Stats.ObservedAt)
	assert.Equal(t, "/w/a", all[1].Event.FromPath)
	assert.Equal(t, "/w/b", all[1].Event.Path)
	assert.True(t, all[2].Event.Stats.IsDir)
	assert.Equal(t, "s2", all[2].Session)

	last, err := j.Recent(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, events.Move, last[0].Event.Kind)
	assert.Equal(t, events.Unlink, last[1].Event.Kind)
}

func TestRecentFilters(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, "s1", events.NewAdd("/w/a", events.Stats{})))
	require.NoError(t, j.Append(ctx, "s1", events.NewChange("/w/a", events.Stats{})))
	require.NoError(t, j.Append(ctx, "s2", events.NewChange("/other/x", events.Stats{})))
	require.NoError(t, j.Append(ctx, "s2", events.NewMove("/w/c", "/other/c", events.Stats{})))
	require.NoError(t, j.Append(ctx, "s3", events.NewAdd("/w/café/x.txt", events.Stats{})))
	require.NoError(t, j.Append(ctx, "s3", events.NewMove("/tmp/日本/y", "/srv/y", events.Stats{})))

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by kind", Filter{Kinds: []events.Kind{events.Change}}, 2},
		{"by two kinds", Filter{Kinds: []events.Kind{events.Add, events.Move}}, 4},
		{"by session", Filter{Session: "s2"}, 2},
		{"by prefix matches from_path", Filter{PathPrefix: "/w/"}, 4},
		{"by multi-byte prefix", Filter{PathPrefix: "/w/café/"}, 1},
		{"by multi-byte from_path prefix", Filter{PathPrefix: "/tmp/日本"}, 1},
		{"prefix must be at the start", Filter{PathPrefix: "café"}, 0},
		{"combined", Filter{Session: "s1", Kinds: []events.Kind{events.Add}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := j.Recent(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestOpenFailsOnDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
