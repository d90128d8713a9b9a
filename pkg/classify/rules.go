package classify

import (
	"github.com/grovetools/notify/pkg/inotify"
)

// Action is what a matched rule does.
type Action int

const (
	// ActionFlushMove resolves a waiting moved-from as an unlink.
	ActionFlushMove Action = iota
	ActionAdd
	ActionChange
	ActionAttributes
	// ActionTouch emits Attributes or Change depending on
	// Options.TouchGeneratesAttributes.
	ActionTouch
	ActionUnlink
	// ActionQueryLink dispatches an lstat to detect a symlink or hard link.
	ActionQueryLink
	ActionMovedFrom
	ActionMovedTo
	// ActionDiscard clears the pattern without emitting.
	ActionDiscard
)

var actionNames = map[Action]string{
	ActionFlushMove:  "flush-move",
	ActionAdd:        "add",
	ActionChange:     "change",
	ActionAttributes: "attributes",
	ActionTouch:      "touch",
	ActionUnlink:     "unlink",
	ActionQueryLink:  "query-link",
	ActionMovedFrom:  "moved-from",
	ActionMovedTo:    "moved-to",
	ActionDiscard:    "discard",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether a match stops rule evaluation.
func (a Action) Terminal() bool {
	return a != ActionFlushMove && a != ActionQueryLink
}

// Rule matches a pattern that has every Require bit, at least one Any bit
// when Any is set, and no Forbid bit.
type Rule struct {
	Name    string
	Require inotify.Kind
	Any     inotify.Kind
	Forbid  inotify.Kind
	Action  Action
}

// Matches reports whether the rule applies to pattern.
func (r Rule) Matches(pattern inotify.Kind) bool {
	if !pattern.Has(r.Require) {
		return false
	}
	if r.Any != 0 && !pattern.HasAny(r.Any) {
		return false
	}
	return !pattern.HasAny(r.Forbid)
}

const closeFamily = inotify.CloseWrite | inotify.CloseNoWrite | inotify.Close

// Rules is evaluated top to bottom; the first terminal match wins.
var Rules = []Rule{
	{
		Name:   "stale-move-flush",
		Forbid: inotify.MovedTo,
		Action: ActionFlushMove,
	},
	{
		Name:    "created-file",
		Require: inotify.Create | inotify.Open | inotify.Modify | inotify.CloseWrite | inotify.Close,
		Action:  ActionAdd,
	},
	{
		Name:    "created-file-attrib",
		Require: inotify.Create | inotify.Open | inotify.Attrib | inotify.CloseWrite | inotify.Close,
		Action:  ActionAdd,
	},
	{
		Name:    "attributes",
		Require: inotify.Attrib,
		Forbid:  inotify.Open | inotify.Create | inotify.Modify,
		Action:  ActionAttributes,
	},
	{
		Name:    "touch",
		Require: inotify.Open | inotify.Attrib | inotify.CloseWrite | inotify.Close,
		Forbid:  inotify.Create,
		Action:  ActionTouch,
	},
	{
		Name:    "changed-file-attrib",
		Require: inotify.Open | inotify.Attrib | inotify.CloseWrite | inotify.Close,
		Action:  ActionChange,
	},
	{
		Name:    "changed-file",
		Require: inotify.Open | inotify.Modify | inotify.CloseWrite | inotify.Close,
		Action:  ActionChange,
	},
	{
		Name:    "deleted",
		Require: inotify.Delete,
		Action:  ActionUnlink,
	},
	{
		Name:    "created-directory",
		Require: inotify.IsDir | inotify.Create | inotify.Open | inotify.Access | inotify.CloseNoWrite | inotify.Close,
		Action:  ActionAdd,
	},
	{
		Name:    "possible-link",
		Require: inotify.Create,
		Forbid:  inotify.IsDir,
		Action:  ActionQueryLink,
	},
	{
		Name:    "moved-from",
		Require: inotify.MovedFrom,
		Action:  ActionMovedFrom,
	},
	{
		Name:    "moved-to",
		Require: inotify.MovedTo,
		Action:  ActionMovedTo,
	},
	{
		Name:   "noise",
		Any:    closeFamily,
		Action: ActionDiscard,
	},
}

// Match returns the rules that fire for pattern in evaluation order: any
// non-terminal matches followed by at most one terminal match.
func Match(rules []Rule, pattern inotify.Kind) []Rule {
	var fired []Rule
	for _, r := range rules {
		if !r.Matches(pattern) {
			continue
		}
		fired = append(fired, r)
		if r.Action.Terminal() {
			break
		}
	}
	return fired
}
