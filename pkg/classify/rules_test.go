package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grovetools/notify/pkg/inotify"
)

func names(rules []Rule) []string {
	var out []string
	for _, r := range rules {
		out = append(out, r.Name)
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern inotify.Kind
		want    []string
	}{
		{"empty pattern only flushes", 0, []string{"stale-move-flush"}},
		{"created file", inotify.Create | inotify.Open | inotify.Modify | inotify.CloseWrite | inotify.Close, []string{"stale-move-flush", "created-file"}},
		{"created file with attrib", inotify.Create | inotify.Open | inotify.Attrib | inotify.CloseWrite | inotify.Close, []string{"stale-move-flush", "created-file-attrib"}},
		{"pure attrib", inotify.Attrib, []string{"stale-move-flush", "attributes"}},
		{"attrib with extras", inotify.Attrib | inotify.Access | inotify.IsDir, []string{"stale-move-flush", "attributes"}},
		{"attrib with open is not attributes", inotify.Attrib | inotify.Open, []string{"stale-move-flush"}},
		{"touch", inotify.Open | inotify.Attrib | inotify.CloseWrite | inotify.Close, []string{"stale-move-flush", "touch"}},
		{"changed with modify", inotify.Open | inotify.Modify | inotify.CloseWrite | inotify.Close, []string{"stale-move-flush", "changed-file"}},
		{"delete beats everything after it", inotify.Delete | inotify.Create | inotify.MovedFrom, []string{"stale-move-flush", "deleted"}},
		{"created directory", inotify.IsDir | inotify.Create | inotify.Open | inotify.Access | inotify.CloseNoWrite | inotify.Close, []string{"stale-move-flush", "created-directory"}},
		{"possible link falls through to noise", inotify.Create | inotify.CloseNoWrite, []string{"stale-move-flush", "possible-link", "noise"}},
		{"create on directory is not a link", inotify.Create | inotify.IsDir, []string{"stale-move-flush"}},
		{"moved from", inotify.MovedFrom, []string{"stale-move-flush", "moved-from"}},
		{"moved to skips flush", inotify.MovedTo, []string{"moved-to"}},
		{"moved to directory", inotify.MovedTo | inotify.IsDir, []string{"moved-to"}},
		{"noise", inotify.Open | inotify.CloseNoWrite | inotify.Close, []string{"stale-move-flush", "noise"}},
		{"unresolved open", inotify.Open | inotify.Access, []string{"stale-move-flush"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Match(Rules, tt.pattern)))
		})
	}
}

func TestRuleTableShape(t *testing.T) {
	assert.Len(t, Rules, 13)
	assert.Equal(t, ActionFlushMove, Rules[0].Action)
	assert.Equal(t, ActionDiscard, Rules[len(Rules)-1].Action)

	var nonTerminal []string
	for _, r := range Rules {
		if !r.Action.Terminal() {
			nonTerminal = append(nonTerminal, r.Name)
		}
	}
	assert.Equal(t, []string{"stale-move-flush", "possible-link"}, nonTerminal)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "query-link", ActionQueryLink.String())
	assert.Equal(t, "unknown", Action(99).String())
}
