package inotify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/notify/errors"
)

// Format is the --format argument handed to inotifywait. Each output line
// decodes with Decode.
const Format = `{ "type": "%e", "file": "%w%f", "date": "%T" }`

// TimeFormat makes %T render as epoch seconds.
const TimeFormat = "%s"

// Notification is one decoded line of source output.
type Notification struct {
	Path       string    `json:"path"`
	Kinds      []string  `json:"kinds"`
	ObservedAt time.Time `json:"observed_at"`
}

// Empty reports whether n carries neither a path nor kinds. Parse failures
// are replaced by an empty notification.
func (n Notification) Empty() bool {
	return n.Path == "" && len(n.Kinds) == 0
}

// IsDir reports whether the ISDIR token is present.
func (n Notification) IsDir() bool {
	for _, k := range n.Kinds {
		if strings.EqualFold(strings.TrimSpace(k), "ISDIR") {
			return true
		}
	}
	return false
}

type wireLine struct {
	Type string          `json:"type"`
	File string          `json:"file"`
	Date json.RawMessage `json:"date"`
}

// Decode parses one line of inotifywait output. On failure it returns a
// PARSE_ERROR and an empty notification stamped with now.
func Decode(line []byte, now time.Time) (Notification, error) {
	line = bytes.TrimSpace(line)
	var w wireLine
	if err := json.Unmarshal(line, &w); err != nil {
		return Notification{ObservedAt: now}, errors.ParseFailed(string(line), err)
	}
	if w.File == "" && w.Type == "" {
		return Notification{ObservedAt: now}, errors.ParseFailed(string(line), fmt.Errorf("missing type and file"))
	}

	n := Notification{
		Path:       w.File,
		Kinds:      Tokens(w.Type),
		ObservedAt: now,
	}
	if secs, ok := epochSeconds(w.Date); ok {
		n.ObservedAt = time.Unix(secs, 0)
	}
	return n, nil
}

// epochSeconds accepts the date as a JSON string or number.
func epochSeconds(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return 0, false
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return secs, true
}

// Encode renders n in the same line format Decode accepts.
func Encode(n Notification) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		File string `json:"file"`
		Date string `json:"date"`
	}{
		Type: strings.Join(n.Kinds, ","),
		File: n.Path,
		Date: strconv.FormatInt(n.ObservedAt.Unix(), 10),
	})
}
