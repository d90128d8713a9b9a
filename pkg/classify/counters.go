package classify

import (
	"github.com/grovetools/notify/pkg/events"
)

// Counters summarizes a classifier's activity.
type Counters struct {
	Notifications      int64                 `json:"notifications"`
	Emitted            map[events.Kind]int64 `json:"emitted"`
	DirectoriesDropped int64                 `json:"directories_dropped"`
	UnknownKinds       int64                 `json:"unknown_kinds"`
	ParseErrors        int64                 `json:"parse_errors"`
	Discarded          int64                 `json:"discarded"`
	LinkQueries        int64                 `json:"link_queries"`
	LinksConfirmed     int64                 `json:"links_confirmed"`
	MovesPaired        int64                 `json:"moves_paired"`
	MovesFlushed       int64                 `json:"moves_flushed"`
	MovesTimedOut      int64                 `json:"moves_timed_out"`
}

func newCounters() Counters {
	return Counters{Emitted: make(map[events.Kind]int64)}
}

func (k Counters) clone() Counters {
	out := k
	out.Emitted = make(map[events.Kind]int64, len(k.Emitted))
	for kind, n := range k.Emitted {
		out.Emitted[kind] = n
	}
	return out
}

// Counters returns a snapshot. It is safe to call from any goroutine.
func (c *Classifier) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters.clone()
}

func (c *Classifier) count(update func(*Counters)) {
	c.mu.Lock()
	update(&c.counters)
	c.mu.Unlock()
}
