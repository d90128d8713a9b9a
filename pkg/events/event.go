// Package events defines the semantic events produced by the classifier.
package events

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Kind is the type of a semantic event
type Kind string

const (
	Add        Kind = "add"
	Change     Kind = "change"
	Attributes Kind = "attributes"
	Unlink     Kind = "unlink"
	Move       Kind = "move"
)

// Kinds lists every semantic kind in a stable order.
var Kinds = []Kind{Add, Change, Attributes, Unlink, Move}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

func (k Kind) String() string { return string(k) }

// Value implements driver.Valuer for Kind
func (k Kind) Value() (driver.Value, error) {
	return string(k), nil
}

// Scan implements sql.Scanner for Kind
func (k *Kind) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*k = Kind(v)
	case []byte:
		*k = Kind(v)
	default:
		return fmt.Errorf("cannot scan %T into Kind", value)
	}
	return nil
}

// Stats is captured once per raw notification and never changes afterwards.
type Stats struct {
	IsDir      bool      `json:"is_dir" db:"is_dir"`
	ObservedAt time.Time `json:"observed_at" db:"observed_at"`
}

// Event is a single semantic filesystem event.
type Event struct {
	Kind Kind   `json:"kind" db:"kind"`
	Path string `json:"path" db:"path"`
	// FromPath is only set for Move.
	FromPath string `json:"from_path,omitempty" db:"from_path"`
	Stats    Stats  `json:"stats"`
}

func NewAdd(path string, stats Stats) Event {
	return Event{Kind: Add, Path: path, Stats: stats}
}

func NewChange(path string, stats Stats) Event {
	return Event{Kind: Change, Path: path, Stats: stats}
}

func NewAttributes(path string, stats Stats) Event {
	return Event{Kind: Attributes, Path: path, Stats: stats}
}

func NewUnlink(path string, stats Stats) Event {
	return Event{Kind: Unlink, Path: path, Stats: stats}
}

// NewMove builds a Move. stats belong to the moved-to notification.
func NewMove(fromPath, toPath string, stats Stats) Event {
	return Event{Kind: Move, Path: toPath, FromPath: fromPath, Stats: stats}
}

func (e Event) String() string {
	suffix := ""
	if e.Stats.IsDir {
		suffix = "/"
	}
	if e.Kind == Move {
		return fmt.Sprintf("%s %s%s -> %s%s", e.Kind, e.FromPath, suffix, e.Path, suffix)
	}
	return fmt.Sprintf("%s %s%s", e.Kind, e.Path, suffix)
}
