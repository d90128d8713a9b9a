// Package hub fans semantic events out to subscribers.
package hub

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/pkg/events"
)

// UpdateType defines what happened.
type UpdateType string

const (
	UpdateEvent  UpdateType = "event"
	UpdateError  UpdateType = "error"
	UpdateReady  UpdateType = "ready"
	UpdateExit   UpdateType = "exit"
	UpdateClosed UpdateType = "closed"
	UpdateReload UpdateType = "reload"
)

// Update is one message delivered to subscribers.
type Update struct {
	Type    UpdateType
	Session string
	At      time.Time
	Event   *events.Event // UpdateEvent only
	Err     error         // UpdateError, and UpdateExit when the source failed
}

// wireUpdate is the JSON shape sent to stream clients.
type wireUpdate struct {
	Type    UpdateType    `json:"type"`
	Session string        `json:"session,omitempty"`
	At      time.Time     `json:"at"`
	Event   *events.Event `json:"event,omitempty"`
	Error   *wireError    `json:"error,omitempty"`
}

type wireError struct {
	Code    errors.ErrorCode `json:"code,omitempty"`
	Message string           `json:"message"`
}

// MarshalJSON flattens Err into a code and message.
func (u Update) MarshalJSON() ([]byte, error) {
	w := wireUpdate{Type: u.Type, Session: u.Session, At: u.At, Event: u.Event}
	if u.Err != nil {
		code := errors.GetCode(u.Err)
		w.Error = &wireError{Code: code, Message: strings.TrimPrefix(u.Err.Error(), string(code)+": ")}
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores an update written by MarshalJSON. The error comes
// back as a NotifyError carrying the original code and message.
func (u *Update) UnmarshalJSON(data []byte) error {
	var w wireUpdate
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*u = Update{Type: w.Type, Session: w.Session, At: w.At, Event: w.Event}
	if w.Error != nil {
		code := w.Error.Code
		if code == "" {
			code = errors.ErrCodeInternal
		}
		u.Err = errors.New(code, w.Error.Message)
	}
	return nil
}
