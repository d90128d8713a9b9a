// Package source produces raw notifications for the classifier.
package source

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/notify/pkg/inotify"
)

// Raw is one decoded output line. When the line could not be decoded,
// ParseErr is set and Notification is empty; it must still be processed
// so the stream keeps its shape.
type Raw struct {
	Notification inotify.Notification
	ParseErr     error
}

// Source is a running producer of raw notifications.
type Source interface {
	// Start begins producing. It returns spawn errors directly.
	Start(ctx context.Context) error
	// Notifications is closed once the source has finished.
	Notifications() <-chan Raw
	// Errors carries diagnostics and the unexpected exit error.
	Errors() <-chan error
	// Ready is closed once the watch is fully established.
	Ready() <-chan struct{}
	// Done is closed after Notifications is closed.
	Done() <-chan struct{}
	// Err returns the exit error after Done. A requested Stop is not an error.
	Err() error
	// Stop terminates the source and waits for Done.
	Stop() error
}

// stream holds the channels shared by every Source implementation.
type stream struct {
	notifications chan Raw
	errs          chan error
	ready         chan struct{}
	done          chan struct{}
	stopping      chan struct{}

	readyOnce sync.Once
	stopOnce  sync.Once

	mu  sync.Mutex
	err error

	now func() time.Time
}

func newStream(buffer int, now func() time.Time) stream {
	if buffer <= 0 {
		buffer = 256
	}
	if now == nil {
		now = time.Now
	}
	return stream{
		notifications: make(chan Raw, buffer),
		errs:          make(chan error, 16),
		ready:         make(chan struct{}),
		done:          make(chan struct{}),
		stopping:      make(chan struct{}),
		now:           now,
	}
}

func (s *stream) Notifications() <-chan Raw { return s.notifications }
func (s *stream) Errors() <-chan error      { return s.errs }
func (s *stream) Ready() <-chan struct{}    { return s.ready }
func (s *stream) Done() <-chan struct{}     { return s.done }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stream) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *stream) requestStop() bool {
	first := false
	s.stopOnce.Do(func() {
		close(s.stopping)
		first = true
	})
	return first
}

func (s *stream) stopRequested() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

// decodeLine turns one output line into a Raw and delivers it. It returns
// false once the stream is stopping.
func (s *stream) decodeLine(line []byte) bool {
	n, err := inotify.Decode(line, s.now())
	return s.send(Raw{Notification: n, ParseErr: err})
}

func (s *stream) send(raw Raw) bool {
	select {
	case s.notifications <- raw:
		return true
	case <-s.stopping:
		return false
	}
}

func (s *stream) report(err error) {
	select {
	case s.errs <- err:
	case <-s.stopping:
	}
}

// finish closes the output channels. Call it exactly once.
func (s *stream) finish(err error) {
	s.setErr(err)
	close(s.notifications)
	close(s.done)
}
