package hub

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/grovetools/notify/pkg/events"
)

// DefaultBuffer is the per-subscriber channel size.
const DefaultBuffer = 100

// Hub is a thread-safe pub/sub for session updates. Plain subscribers never
// slow a publisher: when their buffer is full they miss the update.
// Reliable subscribers receive every update; Publish waits for them.
type Hub struct {
	// publishMu keeps reliable deliveries in publish order.
	publishMu sync.Mutex

	mu          sync.RWMutex
	subscribers map[chan Update]*subscriber
	buffer      int
	closed      bool
	dropped     uint64

	history []events.Event
	keep    int

	logger   *logrus.Entry
	dropWarn *rate.Limiter
}

type subscriber struct {
	ch       chan Update
	reliable bool
	// done aborts a blocked reliable delivery.
	done chan struct{}

	// mu is held shared while delivering, exclusively while closing ch.
	mu     sync.RWMutex
	closed bool
}

func (sub *subscriber) deliver(u Update) {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	if sub.closed {
		return
	}
	select {
	case sub.ch <- u:
	case <-sub.done:
	}
}

// close must be called once, after sub left the subscriber map.
func (sub *subscriber) close() {
	close(sub.done)
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.closed = true
	close(sub.ch)
}

// New creates a hub. keep bounds the number of recent events retained for
// late subscribers; zero disables retention.
func New(buffer, keep int, logger *logrus.Entry) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		subscribers: make(map[chan Update]*subscriber),
		buffer:      buffer,
		keep:        keep,
		logger:      logger,
		dropWarn:    rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Publish broadcasts u to every subscriber. It blocks until each reliable
// subscriber has taken u or unsubscribed.
func (h *Hub) Publish(u Update) {
	if u.At.IsZero() {
		u.At = time.Now()
	}

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if u.Type == UpdateEvent && u.Event != nil && h.keep > 0 {
		h.history = append(h.history, *u.Event)
		if len(h.history) > h.keep {
			h.history = h.history[len(h.history)-h.keep:]
		}
	}

	var reliable []*subscriber
	for ch, sub := range h.subscribers {
		if sub.reliable {
			reliable = append(reliable, sub)
			continue
		}
		select {
		case ch <- u:
		default:
			h.dropped++
			if h.dropWarn.Allow() {
				h.logger.WithField("dropped", h.dropped).Warn("Subscriber too slow, dropping updates")
			}
		}
	}
	h.mu.Unlock()

	for _, sub := range reliable {
		sub.deliver(u)
	}
}

// Emit publishes a semantic event.
func (h *Hub) Emit(session string, ev events.Event) {
	h.Publish(Update{Type: UpdateEvent, Session: session, At: ev.Stats.ObservedAt, Event: &ev})
}

// Subscribe creates a new subscription channel that misses updates when
// its buffer is full. On a closed hub the channel is returned already
// closed.
func (h *Hub) Subscribe() chan Update {
	ch, _ := h.subscribe(false, false)
	return ch
}

// SubscribeReliable creates a subscription that never misses an update.
// The reader must drain it or Unsubscribe, since publishing waits for it.
func (h *Hub) SubscribeReliable() chan Update {
	ch, _ := h.subscribe(true, false)
	return ch
}

// SubscribeWithRecent subscribes and returns the retained events as one
// step, so no event is both replayed and delivered.
func (h *Hub) SubscribeWithRecent() (chan Update, []events.Event) {
	return h.subscribe(false, true)
}

func (h *Hub) subscribe(reliable, recent bool) (chan Update, []events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Update, h.buffer)
	if h.closed {
		close(ch)
		return ch, nil
	}
	h.subscribers[ch] = &subscriber{ch: ch, reliable: reliable, done: make(chan struct{})}
	if !recent {
		return ch, nil
	}
	return ch, append([]events.Event(nil), h.history...)
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(ch chan Update) {
	h.mu.Lock()
	sub, ok := h.subscribers[ch]
	if ok {
		delete(h.subscribers, ch)
	}
	h.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Recent returns a copy of the retained events, oldest first.
func (h *Hub) Recent() []events.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]events.Event(nil), h.history...)
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subscribers
	h.subscribers = nil
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
