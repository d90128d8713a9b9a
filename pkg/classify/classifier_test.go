package classify

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/pkg/inotify"
)

type recorder struct {
	events []events.Event
	errs   []error
}

func (r *recorder) Emit(ev events.Event) { r.events = append(r.events, ev) }
func (r *recorder) Report(err error)     { r.errs = append(r.errs, err) }

func (r *recorder) kinds() []events.Kind {
	var out []events.Kind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

var observed = time.Unix(1700000000, 0)

func note(path string, kinds ...string) inotify.Notification {
	return inotify.Notification{Path: path, Kinds: kinds, ObservedAt: observed}
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// noLinks reports every path as a plain file.
var noLinks = LinkCheckerFunc(func(string) (LinkInfo, error) {
	return LinkInfo{Nlink: 1}, nil
})

type harness struct {
	c     *Classifier
	sched *ManualScheduler
	out   *recorder
}

func newHarness(opts Options) *harness {
	if opts.Links == nil {
		opts.Links = noLinks
	}
	opts.Logger = quietLogger()
	h := &harness{sched: NewManualScheduler(), out: &recorder{}}
	h.c = New(opts, h.out, h.sched)
	return h
}

func (h *harness) feed(ns ...inotify.Notification) {
	for _, n := range ns {
		h.c.Process(n)
	}
}

func permutations(in []string) [][]string {
	if len(in) <= 1 {
		return [][]string{append([]string(nil), in...)}
	}
	var out [][]string
	for i := range in {
		rest := make([]string, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{in[i]}, p...))
		}
	}
	return out
}

func TestCreatedFileAnyOrder(t *testing.T) {
	for _, order := range permutations([]string{"CREATE", "OPEN", "MODIFY"}) {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			h := newHarness(Options{})
			for _, k := range order {
				h.feed(note("/w/f", k))
			}
			h.feed(note("/w/f", "CLOSE_WRITE", "CLOSE"))
			h.sched.RunQueries()

			require.Len(t, h.out.events, 1)
			assert.Equal(t, events.NewAdd("/w/f", events.Stats{ObservedAt: observed}), h.out.events[0])
			assert.Equal(t, 0, h.c.Unresolved())
		})
	}

	for _, tokens := range permutations([]string{"CREATE", "OPEN", "MODIFY", "CLOSE_WRITE", "CLOSE"}) {
		h := newHarness(Options{})
		h.feed(note("/w/f", tokens...))
		h.sched.RunQueries()
		require.Equal(t, []events.Kind{events.Add}, h.out.kinds(), "tokens %v", tokens)
		assert.Equal(t, 0, h.c.Unresolved())
	}
}

func TestCreateOpenAttribClose(t *testing.T) {
	h := newHarness(Options{})
	h.feed(
		note("/w/f", "CREATE"),
		note("/w/f", "OPEN"),
		note("/w/f", "ATTRIB"),
		note("/w/f", "CLOSE_WRITE", "CLOSE"),
	)
	h.sched.RunQueries()

	require.Len(t, h.out.events, 1)
	assert.Equal(t, events.Add, h.out.events[0].Kind)
	assert.Equal(t, "/w/f", h.out.events[0].Path)
	assert.False(t, h.out.events[0].Stats.IsDir)
	assert.Empty(t, h.out.errs)
}

func TestMovePairing(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/a", "MOVED_FROM"))
	assert.NotNil(t, h.c.Pending())
	assert.Empty(t, h.out.events)

	h.feed(note("/w/b", "MOVED_TO"))
	require.Len(t, h.out.events, 1)
	assert.Equal(t, events.NewMove("/w/a", "/w/b", events.Stats{ObservedAt: observed}), h.out.events[0])
	assert.Nil(t, h.c.Pending())
	assert.Equal(t, 0, h.sched.PendingTimers())

	h.sched.Advance(10 * MoveDeadline)
	assert.Len(t, h.out.events, 1)
	assert.Equal(t, 0, h.c.Unresolved())
}

func TestMoveTimeout(t *testing.T) {
	h := newHarness(Options{})
	fromStats := events.Stats{ObservedAt: time.Unix(5, 0)}
	h.feed(inotify.Notification{Path: "/w/a", Kinds: []string{"MOVED_FROM"}, ObservedAt: fromStats.ObservedAt})

	assert.Equal(t, 0, h.sched.Advance(MoveDeadline/2))
	assert.Empty(t, h.out.events)

	assert.Equal(t, 1, h.sched.Advance(MoveDeadline))
	require.Len(t, h.out.events, 1)
	assert.Equal(t, events.NewUnlink("/w/a", fromStats), h.out.events[0])
	assert.Nil(t, h.c.Pending())
	assert.EqualValues(t, 1, h.c.Counters().MovesTimedOut)
}

func TestMovedToWithoutMovedFrom(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/in", "MOVED_TO"))
	assert.Equal(t, []events.Kind{events.Add}, h.out.kinds())
	assert.Equal(t, "/w/in", h.out.events[0].Path)
}

func TestStalePendingMoveFlush(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/a", "MOVED_FROM"))
	h.feed(note("/w/other", "MODIFY"))

	require.Equal(t, []events.Kind{events.Unlink}, h.out.kinds())
	assert.Equal(t, "/w/a", h.out.events[0].Path)
	assert.Nil(t, h.c.Pending())
	assert.Equal(t, 0, h.sched.PendingTimers())

	// A late moved-to is now an add.
	h.feed(note("/w/b", "MOVED_TO"))
	assert.Equal(t, []events.Kind{events.Unlink, events.Add}, h.out.kinds())
}

func TestSecondMovedFromResolvesFirst(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/a", "MOVED_FROM"), note("/w/b", "MOVED_FROM"))

	require.Equal(t, []events.Kind{events.Unlink}, h.out.kinds())
	assert.Equal(t, "/w/a", h.out.events[0].Path)
	require.NotNil(t, h.c.Pending())
	assert.Equal(t, "/w/b", h.c.Pending().FromPath)

	h.feed(note("/w/c", "MOVED_TO"))
	require.Len(t, h.out.events, 2)
	assert.Equal(t, events.NewMove("/w/b", "/w/c", events.Stats{ObservedAt: observed}), h.out.events[1])

	// The first deadline was cancelled and the second consumed.
	h.sched.Advance(time.Second)
	assert.Len(t, h.out.events, 2)
}

func TestAttributes(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "ATTRIB"))
	assert.Equal(t, []events.Kind{events.Attributes}, h.out.kinds())

	h = newHarness(Options{})
	h.feed(note("/w/f", "ATTRIB", "OPEN", "MODIFY"))
	assert.NotContains(t, h.out.kinds(), events.Attributes)
}

func TestTouchGeneratesAttributes(t *testing.T) {
	touch := []string{"OPEN", "ATTRIB", "CLOSE_WRITE", "CLOSE"}

	h := newHarness(Options{TouchGeneratesAttributes: false})
	h.feed(note("/w/f", "OPEN"), note("/w/f", "ATTRIB"), note("/w/f", "CLOSE_WRITE", "CLOSE"))
	assert.Equal(t, []events.Kind{events.Change}, h.out.kinds())

	h = newHarness(Options{TouchGeneratesAttributes: false})
	h.feed(note("/w/f", touch...))
	assert.Equal(t, []events.Kind{events.Change}, h.out.kinds())

	h = newHarness(Options{TouchGeneratesAttributes: true})
	h.feed(note("/w/f", touch...))
	assert.Equal(t, []events.Kind{events.Attributes}, h.out.kinds())
}

func TestContentChange(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "OPEN"), note("/w/f", "MODIFY"), note("/w/f", "MODIFY"), note("/w/f", "CLOSE_WRITE", "CLOSE"))
	assert.Equal(t, []events.Kind{events.Change}, h.out.kinds())
	assert.Equal(t, 0, h.c.Unresolved())
}

func TestDirectoryFiltering(t *testing.T) {
	h := newHarness(Options{WatchDirectory: false})
	h.feed(note("/w/d", "DELETE", "ISDIR"))
	assert.Empty(t, h.out.events)
	assert.Equal(t, 0, h.c.Unresolved())
	assert.EqualValues(t, 1, h.c.Counters().DirectoriesDropped)

	h = newHarness(Options{WatchDirectory: true})
	h.feed(note("/w/d", "DELETE", "ISDIR"))
	require.Len(t, h.out.events, 1)
	assert.Equal(t, events.NewUnlink("/w/d", events.Stats{IsDir: true, ObservedAt: observed}), h.out.events[0])
}

func TestDirectoryFilterDoesNotFlushPendingMove(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/a", "MOVED_FROM"), note("/w/d", "OPEN", "ISDIR"))
	assert.Empty(t, h.out.events)
	assert.NotNil(t, h.c.Pending())
}

func TestCreatedDirectory(t *testing.T) {
	h := newHarness(Options{WatchDirectory: true})
	h.feed(
		note("/w/d", "CREATE", "ISDIR"),
		note("/w/d", "OPEN", "ISDIR"),
		note("/w/d", "ACCESS", "ISDIR"),
		note("/w/d", "CLOSE_NOWRITE", "CLOSE", "ISDIR"),
	)
	require.Len(t, h.out.events, 1)
	assert.Equal(t, events.Add, h.out.events[0].Kind)
	assert.True(t, h.out.events[0].Stats.IsDir)
	assert.Equal(t, 0, h.sched.PendingQueries())
}

func TestSymlinkCreation(t *testing.T) {
	links := LinkCheckerFunc(func(path string) (LinkInfo, error) {
		if path == "/w/link" {
			return LinkInfo{IsSymlink: true, Nlink: 1}, nil
		}
		return LinkInfo{Nlink: 1}, nil
	})
	h := newHarness(Options{Links: links})
	h.feed(note("/w/link", "CREATE"))
	assert.Empty(t, h.out.events)
	assert.Equal(t, 1, h.sched.PendingQueries())

	h.sched.RunQueries()
	require.Len(t, h.out.events, 1)
	assert.Equal(t, events.NewAdd("/w/link", events.Stats{ObservedAt: observed}), h.out.events[0])

	h.feed(note("/w/link", "OPEN"), note("/w/link", "CLOSE_NOWRITE", "CLOSE"))
	h.sched.RunQueries()
	assert.Len(t, h.out.events, 1)
	assert.EqualValues(t, 1, h.c.Counters().LinksConfirmed)
}

func TestHardlinkCreation(t *testing.T) {
	links := LinkCheckerFunc(func(string) (LinkInfo, error) {
		return LinkInfo{Nlink: 2}, nil
	})
	h := newHarness(Options{Links: links})
	h.feed(note("/w/hard", "CREATE"))
	h.sched.RunQueries()
	assert.Equal(t, []events.Kind{events.Add}, h.out.kinds())
}

func TestLinkQueryLeavesPlainFilesAlone(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "CREATE"))
	h.sched.RunQueries()
	assert.Empty(t, h.out.events)

	kinds, ok := h.c.Pattern("/w/f")
	assert.True(t, ok)
	assert.Equal(t, inotify.Create, kinds)
}

func TestLinkQueryFailureIsSilent(t *testing.T) {
	links := LinkCheckerFunc(func(string) (LinkInfo, error) {
		return LinkInfo{}, fmt.Errorf("no such file or directory")
	})
	h := newHarness(Options{Links: links})
	h.feed(note("/w/gone", "CREATE"))
	h.sched.RunQueries()
	assert.Empty(t, h.out.events)
	assert.Empty(t, h.out.errs)
}

func TestLinkQueryDeduplicated(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "CREATE"), note("/w/f", "OPEN"))
	assert.Equal(t, 1, h.sched.PendingQueries())
}

func TestLinkQueryAfterResolutionDoesNotDuplicate(t *testing.T) {
	links := LinkCheckerFunc(func(string) (LinkInfo, error) {
		return LinkInfo{Nlink: 2}, nil
	})
	h := newHarness(Options{Links: links})
	h.feed(note("/w/f", "CREATE"), note("/w/f", "OPEN", "MODIFY", "CLOSE_WRITE", "CLOSE"))
	require.Equal(t, []events.Kind{events.Add}, h.out.kinds())

	h.sched.RunQueries()
	assert.Equal(t, []events.Kind{events.Add}, h.out.kinds())
}

func TestDeletion(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "OPEN"), note("/w/f", "DELETE"))
	assert.Equal(t, []events.Kind{events.Unlink}, h.out.kinds())
	assert.Equal(t, 0, h.c.Unresolved())
}

func TestNoiseCleanup(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "OPEN"), note("/w/f", "ACCESS"), note("/w/f", "CLOSE_NOWRITE", "CLOSE"))
	assert.Empty(t, h.out.events)
	assert.Empty(t, h.out.errs)
	assert.Equal(t, 0, h.c.Unresolved())
	assert.EqualValues(t, 1, h.c.Counters().Discarded)

	h = newHarness(Options{ReportUnmatched: true})
	h.feed(note("/w/f", "OPEN"), note("/w/f", "CLOSE_NOWRITE", "CLOSE"))
	require.Len(t, h.out.errs, 1)
	assert.True(t, errors.Is(h.out.errs[0], errors.ErrCodeUnmatchedPattern))
}

func TestUnknownKindReported(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "OPEN", "WIBBLE"))

	require.Len(t, h.out.errs, 1)
	assert.True(t, errors.Is(h.out.errs[0], errors.ErrCodeUnknownKind))
	kinds, ok := h.c.Pattern("/w/f")
	assert.True(t, ok)
	assert.Equal(t, inotify.Open, kinds)

	h.feed(note("/w/f", "ATTRIB"), note("/w/f", "CLOSE_WRITE", "CLOSE"))
	assert.Equal(t, []events.Kind{events.Change}, h.out.kinds())
}

func TestIgnoredTokensDoNotCreatePatterns(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/f", "MOVE_SELF"))
	assert.Empty(t, h.out.errs)
	assert.Equal(t, 0, h.c.Unresolved())
}

func TestParseErrorFlushesPendingMove(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/a", "MOVED_FROM"))

	h.c.ReportParseError(errors.ParseFailed("{", fmt.Errorf("unexpected end of JSON input")))
	h.feed(inotify.Notification{ObservedAt: observed})

	assert.Len(t, h.out.errs, 1)
	assert.Equal(t, []events.Kind{events.Unlink}, h.out.kinds())
	assert.Equal(t, 0, h.c.Unresolved())
}

func TestClose(t *testing.T) {
	links := LinkCheckerFunc(func(string) (LinkInfo, error) {
		return LinkInfo{IsSymlink: true}, nil
	})
	h := newHarness(Options{Links: links})
	h.feed(note("/w/a", "MOVED_FROM"), note("/w/link", "CREATE"))
	// The create flushed the first move; start another.
	h.feed(note("/w/b", "MOVED_FROM"))
	before := len(h.out.events)

	h.c.Close()
	assert.Equal(t, 0, h.sched.PendingTimers())
	assert.Nil(t, h.c.Pending())
	assert.Equal(t, 0, h.c.Unresolved())

	h.sched.RunQueries()
	h.sched.Advance(time.Second)
	h.feed(note("/w/c", "DELETE"))
	assert.Len(t, h.out.events, before)
}

func TestPerPathOrdering(t *testing.T) {
	h := newHarness(Options{})
	h.feed(
		note("/w/f", "CREATE", "OPEN", "MODIFY", "CLOSE_WRITE", "CLOSE"),
		note("/w/f", "OPEN", "MODIFY", "CLOSE_WRITE", "CLOSE"),
		note("/w/f", "ATTRIB"),
		note("/w/f", "DELETE"),
	)
	h.sched.RunQueries()
	assert.Equal(t, []events.Kind{events.Add, events.Change, events.Attributes, events.Unlink}, h.out.kinds())
}

func TestCountersSnapshot(t *testing.T) {
	h := newHarness(Options{})
	h.feed(note("/w/a", "MOVED_FROM"), note("/w/b", "MOVED_TO"), note("/w/c", "DELETE"))

	c := h.c.Counters()
	assert.EqualValues(t, 3, c.Notifications)
	assert.EqualValues(t, 1, c.MovesPaired)
	assert.EqualValues(t, 1, c.Emitted[events.Move])
	assert.EqualValues(t, 1, c.Emitted[events.Unlink])

	c.Emitted[events.Move] = 99
	assert.EqualValues(t, 1, h.c.Counters().Emitted[events.Move])
}
