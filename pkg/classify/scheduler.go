package classify

import (
	"sort"
	"sync"
	"time"
)

// Timer is a cancellable single-shot continuation.
type Timer interface {
	// Stop prevents the continuation from running. It returns false if the
	// continuation already ran or was stopped.
	Stop() bool
}

// Scheduler runs delayed and asynchronous continuations on the same
// sequence that processes notifications, never concurrently with it.
type Scheduler interface {
	// AfterFunc runs fn on the processing sequence once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Go runs query off the processing sequence, then runs the
	// continuation it returns on the processing sequence.
	Go(query func() func())
}

// LoopScheduler hands continuations to a loop that drains Continuations.
type LoopScheduler struct {
	ch   chan func()
	done chan struct{}
	once sync.Once
}

// NewLoopScheduler creates a scheduler whose continuations are buffered up
// to size before posting blocks.
func NewLoopScheduler(size int) *LoopScheduler {
	if size <= 0 {
		size = 64
	}
	return &LoopScheduler{
		ch:   make(chan func(), size),
		done: make(chan struct{}),
	}
}

// Continuations is drained by the processing loop.
func (s *LoopScheduler) Continuations() <-chan func() {
	return s.ch
}

// Stop discards any continuation posted after it returns.
func (s *LoopScheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *LoopScheduler) post(fn func()) {
	select {
	case <-s.done:
	case s.ch <- fn:
	}
}

type loopTimer struct {
	mu      sync.Mutex
	t       *time.Timer
	stopped bool
}

func (lt *loopTimer) Stop() bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.stopped {
		return false
	}
	lt.stopped = true
	lt.t.Stop()
	return true
}

// AfterFunc implements Scheduler.
func (s *LoopScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.t = time.AfterFunc(d, func() {
		s.post(func() {
			// Stop may have raced with delivery.
			lt.mu.Lock()
			stopped := lt.stopped
			lt.stopped = true
			lt.mu.Unlock()
			if !stopped {
				fn()
			}
		})
	})
	return lt
}

// Go implements Scheduler.
func (s *LoopScheduler) Go(query func() func()) {
	go func() {
		if next := query(); next != nil {
			s.post(next)
		}
	}()
}

// ManualScheduler runs continuations only when told to. It lets callers
// step timers and queries deterministically.
type ManualScheduler struct {
	now     time.Duration
	seq     int
	timers  []*manualTimer
	queries []func() func()
}

type manualTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (mt *manualTimer) Stop() bool {
	if mt.stopped {
		return false
	}
	mt.stopped = true
	return true
}

// NewManualScheduler returns a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	m.seq++
	mt := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, mt)
	return mt
}

// Go implements Scheduler. The query is deferred until RunQueries.
func (m *ManualScheduler) Go(query func() func()) {
	m.queries = append(m.queries, query)
}

// Advance moves virtual time forward by d and fires due timers in deadline order.
func (m *ManualScheduler) Advance(d time.Duration) int {
	m.now += d
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at == m.timers[j].at {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at < m.timers[j].at
	})

	fired := 0
	var remaining []*manualTimer
	due := m.timers
	m.timers = nil
	for _, mt := range due {
		if mt.stopped {
			continue
		}
		if mt.at > m.now {
			remaining = append(remaining, mt)
			continue
		}
		mt.stopped = true
		mt.fn()
		fired++
	}
	// Timers armed by fired callbacks were appended to m.timers.
	m.timers = append(remaining, m.timers...)
	return fired
}

// PendingTimers counts armed timers.
func (m *ManualScheduler) PendingTimers() int {
	n := 0
	for _, mt := range m.timers {
		if !mt.stopped {
			n++
		}
	}
	return n
}

// PendingQueries counts queries waiting for RunQueries.
func (m *ManualScheduler) PendingQueries() int {
	return len(m.queries)
}

// RunQueries runs every queued query and its continuation in order.
func (m *ManualScheduler) RunQueries() int {
	queries := m.queries
	m.queries = nil
	for _, q := range queries {
		if next := q(); next != nil {
			next()
		}
	}
	return len(queries)
}
