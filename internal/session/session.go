// Package session runs one watch: a raw source, a classifier and the hub
// its events are published on, all driven from a single loop.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/internal/journal"
	"github.com/grovetools/notify/logging"
	"github.com/grovetools/notify/pkg/classify"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/pkg/source"
)

// Factory creates a fresh, unstarted source. It is called once at start
// and again for every reload.
type Factory func() (source.Source, error)

// Options wires a session. Only Config is required.
type Options struct {
	Config *config.Config
	// Factory overrides building the inotifywait source from Config.
	Factory Factory
	// Hub receives updates. A private hub is created when nil and closed
	// with the session.
	Hub *hub.Hub
	// Journal overrides opening the journal from Config.Journal.
	Journal *journal.Journal
	// Links overrides the filesystem link checker.
	Links  classify.LinkChecker
	Logger *logrus.Entry
}

// Snapshot reports a session's activity.
type Snapshot struct {
	Session    string            `json:"session"`
	StartedAt  time.Time         `json:"started_at"`
	Ready      bool              `json:"ready"`
	Classifier classify.Counters `json:"classifier"`
	Excluded   int64             `json:"excluded"`
	Restarts   int64             `json:"restarts"`
	Dropped    uint64            `json:"dropped"`
	Pending    string            `json:"pending_move,omitempty"`
}

// Session is one running watch.
type Session struct {
	id     string
	cfg    *config.Config
	logger *logrus.Entry

	factory  Factory
	sched    *classify.LoopScheduler
	classify *classify.Classifier
	hub      *hub.Hub
	ownsHub  bool
	journal  *journal.Journal
	ownsJrnl bool
	excludes *patternmatcher.PatternMatcher

	reload chan struct{}

	startedAt time.Time
	ready     atomic.Bool
	excluded  atomic.Int64
	restarts  atomic.Int64
	pending   atomic.Pointer[string]

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// New validates the configuration and prepares a session. Nothing runs
// until Start.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("notify-session")
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		factory: opts.Factory,
		sched:   classify.NewLoopScheduler(cfg.BufferSize),
		hub:     opts.Hub,
		journal: opts.Journal,
		reload:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.logger = logger.WithField("session", s.id)

	if s.factory == nil {
		if err := cfg.ValidateWatch(); err != nil {
			return nil, err
		}
		s.factory = ProcessFactory(cfg, nil, s.logger)
	}

	excludes, err := compileExcludes(cfg.ExcludeGlobs)
	if err != nil {
		return nil, err
	}
	s.excludes = excludes

	if s.hub == nil {
		s.hub = hub.New(cfg.BufferSize, 0, s.logger)
		s.ownsHub = true
	}
	if s.journal == nil && cfg.Journal.Enabled {
		j, err := journal.Open(journalPath(cfg))
		if err != nil {
			return nil, err
		}
		s.journal = j
		s.ownsJrnl = true
	}

	s.classify = classify.New(classify.Options{
		WatchDirectory:           cfg.WatchDirectory,
		TouchGeneratesAttributes: cfg.TouchGeneratesAttributes,
		ReportUnmatched:          cfg.Diagnostics.ReportUnmatched,
		NoiseLogRate:             cfg.Diagnostics.LogRate,
		Links:                    opts.Links,
		Logger:                   s.logger,
	}, s, s.sched)

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Hub returns the hub updates are published on.
func (s *Session) Hub() *hub.Hub { return s.hub }

// Config returns the configuration the session runs with.
func (s *Session) Config() *config.Config { return s.cfg }

// Start creates and starts the first source and runs the processing loop
// in the background. Spawn errors are returned directly.
func (s *Session) Start(ctx context.Context) error {
	src, err := s.startSource(ctx)
	if err != nil {
		s.shutdown(err)
		return err
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.startedAt = time.Now()

	if s.cfg.ReloadOnListChange && s.cfg.ExplicitPathList != "" {
		if err := s.watchList(ctx); err != nil {
			s.logger.WithError(err).Warn("Cannot watch path list, reload disabled")
		}
	}

	s.logger.WithField("path", s.cfg.Path).Info("Session started")
	go s.run(ctx, src)
	return nil
}

// Run starts the session and blocks until it ends.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Wait()
}

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns the source's exit error,
// if it failed.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Close ends the session. Partial patterns and a pending move are
// discarded without emitting.
func (s *Session) Close() error {
	if s.cancel == nil {
		s.shutdown(nil)
		return nil
	}
	s.cancel()
	return s.Wait()
}

// Counters returns a snapshot. It is safe to call from any goroutine.
func (s *Session) Counters() Snapshot {
	snap := Snapshot{
		Session:    s.id,
		StartedAt:  s.startedAt,
		Ready:      s.ready.Load(),
		Classifier: s.classify.Counters(),
		Excluded:   s.excluded.Load(),
		Restarts:   s.restarts.Load(),
		Dropped:    s.hub.Dropped(),
	}
	if p := s.pending.Load(); p != nil {
		snap.Pending = *p
	}
	return snap
}

func (s *Session) startSource(ctx context.Context) (source.Source, error) {
	src, err := s.factory()
	if err != nil {
		return nil, err
	}
	if err := src.Start(ctx); err != nil {
		return nil, err
	}
	return src, nil
}

// shutdown releases everything the session owns. It runs once.
func (s *Session) shutdown(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		s.sched.Stop()
		s.classify.Close()
		s.pending.Store(nil)
		s.hub.Publish(hub.Update{Type: hub.UpdateClosed, Session: s.id, Err: err})
		if s.ownsHub {
			s.hub.Close()
		}
		if s.ownsJrnl {
			if cerr := s.journal.Close(); cerr != nil {
				s.logger.WithError(cerr).Warn("Failed to close journal")
			}
		}
		close(s.done)
		s.logger.Info("Session closed")
	})
}

// Emit implements classify.Sink.
func (s *Session) Emit(ev events.Event) {
	s.logger.WithFields(logrus.Fields{
		"kind": ev.Kind,
		"path": ev.Path,
	}).Debug("Event")
	if s.journal != nil {
		if err := s.journal.Append(context.Background(), s.id, ev); err != nil {
			s.logger.WithError(err).Warn("Failed to journal event")
		}
	}
	s.hub.Emit(s.id, ev)
}

// Report implements classify.Sink.
func (s *Session) Report(err error) {
	entry := s.logger.WithField("code", errors.GetCode(err))
	if errors.Recoverable(err) {
		entry.WithError(err).Debug("Recoverable error")
	} else {
		entry.WithError(err).Error("Source failed")
	}
	s.hub.Publish(hub.Update{Type: hub.UpdateError, Session: s.id, Err: err})
}
