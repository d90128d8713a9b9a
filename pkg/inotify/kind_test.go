package inotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		token string
		want  Kind
		ok    bool
	}{
		{"CREATE", Create, true},
		{"close_write", CloseWrite, true},
		{" ISDIR ", IsDir, true},
		{"MOVE", 0, true},
		{"MOVE_SELF", 0, true},
		{"BOGUS", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseKind(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestParseKinds(t *testing.T) {
	set, unknown := ParseKinds([]string{"OPEN", "MOVE_SELF", "WAT", "CLOSE", "CLOSE_WRITE"})
	assert.Equal(t, Open|Close|CloseWrite, set)
	assert.Equal(t, []string{"WAT"}, unknown)
}

func TestKindPredicates(t *testing.T) {
	k := Create | Open | Modify
	assert.True(t, k.Has(Create|Open))
	assert.False(t, k.Has(Create|Close))
	assert.True(t, k.HasAny(Close|Modify))
	assert.False(t, k.HasAny(Delete|IsDir))
	assert.True(t, k.Has(0))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "NONE", Kind(0).String())
	assert.Equal(t, "MODIFY|OPEN|CREATE", (Create | Open | Modify).String())
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"CLOSE_WRITE", "CLOSE"}, Tokens("CLOSE_WRITE,CLOSE"))
	assert.Equal(t, []string{"CREATE", "ISDIR"}, Tokens(" CREATE , ISDIR,"))
	assert.Nil(t, Tokens(""))
}
