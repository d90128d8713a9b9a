// Package classify turns raw inotify notifications into semantic events.
//
// A Classifier is driven from a single sequence: Process, timer callbacks
// and link query continuations must never run concurrently. Scheduler
// implementations guarantee this for the callbacks they run.
package classify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/logging"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/pkg/inotify"
)

// Sink receives the classifier's output.
type Sink interface {
	Emit(events.Event)
	Report(error)
}

// Options tunes classification.
type Options struct {
	// WatchDirectory keeps notifications for directories themselves.
	WatchDirectory bool
	// TouchGeneratesAttributes makes touch-like updates emit Attributes
	// instead of Change.
	TouchGeneratesAttributes bool
	// ReportUnmatched reports UNMATCHED_PATTERN when noise cleanup discards
	// a pattern.
	ReportUnmatched bool
	// NoiseLogRate caps debug logs about discarded patterns per second.
	NoiseLogRate float64
	// Rules overrides the default rule table.
	Rules []Rule
	// Links overrides the filesystem link checker.
	Links LinkChecker
	// Logger overrides the component logger.
	Logger *logrus.Entry
}

// Classifier owns all classification state for one watch session.
type Classifier struct {
	opts   Options
	rules  []Rule
	sink   Sink
	sched  Scheduler
	links  LinkChecker
	logger *logrus.Entry
	noise  *rate.Limiter

	patterns *Accumulator
	moves    correlator
	inflight map[string]struct{}
	closed   bool

	mu       sync.Mutex
	counters Counters
}

// New creates a classifier that emits into sink and schedules its
// continuations on sched.
func New(opts Options, sink Sink, sched Scheduler) *Classifier {
	c := &Classifier{
		opts:     opts,
		rules:    opts.Rules,
		sink:     sink,
		sched:    sched,
		links:    opts.Links,
		logger:   opts.Logger,
		patterns: NewAccumulator(),
		inflight: make(map[string]struct{}),
		counters: newCounters(),
	}
	if c.rules == nil {
		c.rules = Rules
	}
	if c.links == nil {
		c.links = FSLinkChecker{}
	}
	if c.logger == nil {
		c.logger = logging.NewLogger("notify-classify")
	}
	limit := rate.Limit(opts.NoiseLogRate)
	if opts.NoiseLogRate <= 0 {
		limit = rate.Inf
	}
	c.noise = rate.NewLimiter(limit, 1)
	return c
}

// Process classifies one raw notification.
func (c *Classifier) Process(n inotify.Notification) {
	if c.closed {
		return
	}
	if n.IsDir() && !c.opts.WatchDirectory {
		c.count(func(k *Counters) { k.DirectoriesDropped++ })
		return
	}

	stats := events.Stats{IsDir: n.IsDir(), ObservedAt: n.ObservedAt}
	if stats.ObservedAt.IsZero() {
		stats.ObservedAt = time.Now()
	}

	pattern, errs := c.patterns.Merge(n.Path, n.Kinds)
	for _, err := range errs {
		c.count(func(k *Counters) { k.UnknownKinds++ })
		c.sink.Report(err)
	}
	c.count(func(k *Counters) { k.Notifications++ })

	for _, r := range Match(c.rules, pattern) {
		c.logger.WithFields(logrus.Fields{
			"path":    n.Path,
			"rule":    r.Name,
			"pattern": pattern.String(),
		}).Trace("rule matched")
		c.apply(r, n.Path, pattern, stats)
	}
}

func (c *Classifier) apply(r Rule, path string, pattern inotify.Kind, stats events.Stats) {
	switch r.Action {
	case ActionFlushMove:
		c.flushMove()
	case ActionAdd:
		c.resolve(path, events.NewAdd(path, stats))
	case ActionChange:
		c.resolve(path, events.NewChange(path, stats))
	case ActionAttributes:
		c.resolve(path, events.NewAttributes(path, stats))
	case ActionTouch:
		if c.opts.TouchGeneratesAttributes {
			c.resolve(path, events.NewAttributes(path, stats))
		} else {
			c.resolve(path, events.NewChange(path, stats))
		}
	case ActionUnlink:
		c.resolve(path, events.NewUnlink(path, stats))
	case ActionQueryLink:
		c.queryLink(path, stats)
	case ActionMovedFrom:
		c.movedFrom(path, stats)
	case ActionMovedTo:
		c.movedTo(path, stats)
	case ActionDiscard:
		c.discard(path, pattern)
	}
}

// resolve emits ev and drops path's pattern.
func (c *Classifier) resolve(path string, ev events.Event) {
	c.patterns.Clear(path)
	c.emit(ev)
}

func (c *Classifier) emit(ev events.Event) {
	c.count(func(k *Counters) { k.Emitted[ev.Kind]++ })
	c.sink.Emit(ev)
}

func (c *Classifier) flushMove() {
	pm := c.moves.take()
	if pm == nil {
		return
	}
	c.count(func(k *Counters) { k.MovesFlushed++ })
	c.emit(events.NewUnlink(pm.FromPath, pm.FromStats))
}

func (c *Classifier) movedFrom(path string, stats events.Stats) {
	// Only one move may wait at a time.
	c.flushMove()
	c.patterns.Clear(path)
	c.moves.begin(path, stats, func(pm *PendingMove) Timer {
		return c.sched.AfterFunc(MoveDeadline, func() { c.expireMove(pm) })
	})
}

func (c *Classifier) expireMove(pm *PendingMove) {
	if c.closed || !c.moves.expire(pm) {
		return
	}
	c.count(func(k *Counters) { k.MovesTimedOut++ })
	c.emit(events.NewUnlink(pm.FromPath, pm.FromStats))
}

func (c *Classifier) movedTo(path string, stats events.Stats) {
	pm := c.moves.take()
	if pm == nil {
		// The moved-from happened outside the watched tree.
		c.resolve(path, events.NewAdd(path, stats))
		return
	}
	c.count(func(k *Counters) { k.MovesPaired++ })
	c.resolve(path, events.NewMove(pm.FromPath, path, stats))
}

func (c *Classifier) queryLink(path string, stats events.Stats) {
	if _, ok := c.inflight[path]; ok {
		return
	}
	c.inflight[path] = struct{}{}
	c.count(func(k *Counters) { k.LinkQueries++ })

	links := c.links
	c.sched.Go(func() func() {
		info, err := links.Lstat(path)
		return func() { c.linkResolved(path, stats, info, err) }
	})
}

func (c *Classifier) linkResolved(path string, stats events.Stats, info LinkInfo, err error) {
	delete(c.inflight, path)
	if c.closed {
		return
	}
	if err != nil {
		c.logger.WithError(errors.DisambiguationFailed(path, err)).Debug("link query failed, leaving path to later rules")
		return
	}
	if !info.IsLink() {
		return
	}
	// Another rule may have resolved the path while the query ran.
	if !c.patterns.Present(path) {
		return
	}
	c.count(func(k *Counters) { k.LinksConfirmed++ })
	c.resolve(path, events.NewAdd(path, stats))
}

func (c *Classifier) discard(path string, pattern inotify.Kind) {
	c.patterns.Clear(path)
	c.count(func(k *Counters) { k.Discarded++ })
	if c.noise.Allow() {
		c.logger.WithFields(logrus.Fields{
			"path":    path,
			"pattern": pattern.String(),
		}).Debug("discarding unmatched pattern")
	}
	if c.opts.ReportUnmatched {
		c.sink.Report(errors.UnmatchedPattern(path, pattern.String()))
	}
}

// ReportParseError forwards a decode failure. The empty notification that
// replaces the line still goes through Process.
func (c *Classifier) ReportParseError(err error) {
	if c.closed {
		return
	}
	c.count(func(k *Counters) { k.ParseErrors++ })
	c.sink.Report(err)
}

// Pending returns the waiting moved-from, if any.
func (c *Classifier) Pending() *PendingMove {
	return c.moves.Pending()
}

// Pattern returns the accumulated kinds for path.
func (c *Classifier) Pattern(path string) (inotify.Kind, bool) {
	return c.patterns.Get(path), c.patterns.Present(path)
}

// Unresolved returns the number of paths with accumulated kinds.
func (c *Classifier) Unresolved() int {
	return c.patterns.Len()
}

// Close cancels the move deadline and discards all partial state. Link
// query continuations that arrive afterwards do nothing.
func (c *Classifier) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.moves.take()
	c.patterns.Reset()
	c.inflight = make(map[string]struct{})
}
