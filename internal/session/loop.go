package session

import (
	"context"
	"time"

	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/pkg/source"
)

// settleWindow bounds how long a source that ended cleanly waits for a
// pending move to resolve.
const settleWindow = 100 * time.Millisecond

// run is the session's single processing sequence. Notifications, timer
// callbacks and link continuations are all handled here, one at a time.
func (s *Session) run(ctx context.Context, src source.Source) {
	var err error
	defer func() { s.shutdown(err) }()

	for src != nil {
		src, err = s.drive(ctx, src)
	}
}

// drive processes src until it ends. After a reload it returns the source
// that replaced it.
func (s *Session) drive(ctx context.Context, src source.Source) (source.Source, error) {
	notifications := src.Notifications()
	ready := src.Ready()

	for {
		select {
		case <-ctx.Done():
			if err := src.Stop(); err != nil {
				s.logger.WithError(err).Warn("Failed to stop source")
			}
			return nil, nil

		case raw, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			s.handle(raw)

		case fn := <-s.sched.Continuations():
			fn()
			s.trackPending()

		case err := <-src.Errors():
			s.Report(err)

		case <-ready:
			ready = nil
			s.ready.Store(true)
			s.logger.Debug("Source ready")
			s.hub.Publish(hub.Update{Type: hub.UpdateReady, Session: s.id})

		case <-src.Done():
			s.drain(src, true)
			err := src.Err()
			s.hub.Publish(hub.Update{Type: hub.UpdateExit, Session: s.id, Err: err})
			if err == nil {
				s.settle(ctx)
			}
			return nil, err

		case <-s.reload:
			next, err := s.restart(ctx, src)
			if err != nil {
				s.Report(err)
				return nil, err
			}
			return next, nil
		}
	}
}

func (s *Session) handle(raw source.Raw) {
	if raw.ParseErr != nil {
		s.classify.ReportParseError(raw.ParseErr)
	} else if s.isExcluded(raw.Notification.Path) {
		s.excluded.Add(1)
		return
	}
	s.classify.Process(raw.Notification)
	s.trackPending()
}

// drain processes whatever a finished source still had buffered.
func (s *Session) drain(src source.Source, process bool) {
	for raw := range src.Notifications() {
		if process {
			s.handle(raw)
		}
	}
	for {
		select {
		case err := <-src.Errors():
			s.Report(err)
		default:
			return
		}
	}
}

// settle lets a pending move reach its deadline after a clean end of
// input, so a trailing moved-from still becomes an unlink.
func (s *Session) settle(ctx context.Context) {
	if s.classify.Pending() == nil {
		return
	}
	timer := time.NewTimer(settleWindow)
	defer timer.Stop()
	for s.classify.Pending() != nil {
		select {
		case fn := <-s.sched.Continuations():
			fn()
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// restart replaces src with a fresh source. Classifier state carries over.
func (s *Session) restart(ctx context.Context, src source.Source) (source.Source, error) {
	s.logger.Info("Path list changed, restarting source")
	if err := src.Stop(); err != nil {
		s.logger.WithError(err).Warn("Failed to stop source")
	}
	s.drain(src, true)

	s.ready.Store(false)
	next, err := s.startSource(ctx)
	if err != nil {
		return nil, err
	}
	s.restarts.Add(1)
	s.hub.Publish(hub.Update{Type: hub.UpdateReload, Session: s.id})
	return next, nil
}

func (s *Session) trackPending() {
	pm := s.classify.Pending()
	if pm == nil {
		s.pending.Store(nil)
		return
	}
	from := pm.FromPath
	s.pending.Store(&from)
}

func (s *Session) requestReload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}
