package classify

import (
	"time"

	"github.com/grovetools/notify/pkg/events"
)

// MoveDeadline is how long a moved-from waits for its moved-to. It only has
// to outlast the rest of the current batch of notifications.
const MoveDeadline = time.Millisecond

// PendingMove is a moved-from waiting for its moved-to.
type PendingMove struct {
	FromPath  string
	FromStats events.Stats
	timer     Timer
}

// correlator holds at most one pending move.
type correlator struct {
	pending *PendingMove
}

// Pending returns the waiting move, if any.
func (c *correlator) Pending() *PendingMove {
	return c.pending
}

// begin records a new pending move. The caller must have resolved any
// previous one.
func (c *correlator) begin(path string, stats events.Stats, arm func(pm *PendingMove) Timer) *PendingMove {
	pm := &PendingMove{FromPath: path, FromStats: stats}
	pm.timer = arm(pm)
	c.pending = pm
	return pm
}

// take removes the pending move and cancels its deadline.
func (c *correlator) take() *PendingMove {
	pm := c.pending
	if pm == nil {
		return nil
	}
	c.pending = nil
	if pm.timer != nil {
		pm.timer.Stop()
	}
	return pm
}

// expire removes pm if it is still the pending move. A deadline that fires
// after its move was paired or flushed finds a different (or no) pending
// move and does nothing.
func (c *correlator) expire(pm *PendingMove) bool {
	if c.pending != pm {
		return false
	}
	c.pending = nil
	return true
}
