package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	stats := Stats{IsDir: true, ObservedAt: time.Unix(10, 0)}

	tests := []struct {
		name string
		got  Event
		want Event
	}{
		{"add", NewAdd("/w/d", stats), Event{Kind: Add, Path: "/w/d", Stats: stats}},
		{"change", NewChange("/w/f", stats), Event{Kind: Change, Path: "/w/f", Stats: stats}},
		{"attributes", NewAttributes("/w/f", stats), Event{Kind: Attributes, Path: "/w/f", Stats: stats}},
		{"unlink", NewUnlink("/w/f", stats), Event{Kind: Unlink, Path: "/w/f", Stats: stats}},
		{"move", NewMove("/w/a", "/w/b", stats), Event{Kind: Move, Path: "/w/b", FromPath: "/w/a", Stats: stats}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "add /w/f", NewAdd("/w/f", Stats{}).String())
	assert.Equal(t, "unlink /w/d/", NewUnlink("/w/d", Stats{IsDir: true}).String())
	assert.Equal(t, "move /w/a -> /w/b", NewMove("/w/a", "/w/b", Stats{}).String())
}

func TestMoveJSONOmitsEmptyFromPath(t *testing.T) {
	data, err := json.Marshal(NewAdd("/w/f", Stats{}))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from_path")

	data, err = json.Marshal(NewMove("/w/a", "/w/b", Stats{}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"from_path":"/w/a"`)
}

func TestKindScan(t *testing.T) {
	var k Kind
	require.NoError(t, k.Scan([]byte("move")))
	assert.Equal(t, Move, k)
	require.Error(t, k.Scan(12))

	parsed, err := ParseKind("attributes")
	require.NoError(t, err)
	assert.Equal(t, Attributes, parsed)
	_, err = ParseKind("rename")
	assert.Error(t, err)
}
