package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/notify/pkg/inotify"
	"github.com/grovetools/notify/pkg/source"
)

// FakeSource is a source.Source driven directly by a test.
type FakeSource struct {
	StartErr error

	notes chan source.Raw
	errs  chan error
	ready chan struct{}
	done  chan struct{}

	readyOnce sync.Once
	endOnce   sync.Once
	mu        sync.Mutex
	err       error
	started   bool
}

// NewFakeSource creates a source with room for a few buffered notifications.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		notes: make(chan source.Raw, 16),
		errs:  make(chan error, 4),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (f *FakeSource) Start(ctx context.Context) error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return f.StartErr
}

func (f *FakeSource) Notifications() <-chan source.Raw { return f.notes }
func (f *FakeSource) Errors() <-chan error             { return f.errs }
func (f *FakeSource) Ready() <-chan struct{}           { return f.ready }
func (f *FakeSource) Done() <-chan struct{}            { return f.done }

func (f *FakeSource) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Stop ends the source without an error.
func (f *FakeSource) Stop() error {
	f.End(nil)
	return nil
}

// Started reports whether Start was called.
func (f *FakeSource) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// MarkReady closes Ready.
func (f *FakeSource) MarkReady() {
	f.readyOnce.Do(func() { close(f.ready) })
}

// Send delivers a notification stamped with a fixed time.
func (f *FakeSource) Send(path string, kinds ...string) {
	f.notes <- source.Raw{Notification: inotify.Notification{
		Path:       path,
		Kinds:      kinds,
		ObservedAt: time.Unix(1700000000, 0),
	}}
}

// SendRaw delivers raw as is.
func (f *FakeSource) SendRaw(raw source.Raw) {
	f.notes <- raw
}

// Fail queues a diagnostic on Errors.
func (f *FakeSource) Fail(err error) {
	f.errs <- err
}

// End finishes the source with err as its exit error.
func (f *FakeSource) End(err error) {
	f.endOnce.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.notes)
		close(f.done)
	})
}
