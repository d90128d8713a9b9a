// Package process inspects and stops child processes.
package process

import (
	"errors"
	"time"
)

// ErrProcessNotFound is returned when stopping a process that is already gone.
var ErrProcessNotFound = errors.New("process not found")

// DefaultStopGrace is the time between SIGTERM and SIGKILL.
const DefaultStopGrace = 2 * time.Second
