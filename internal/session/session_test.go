package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/internal/journal"
	"github.com/grovetools/notify/pkg/classify"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/pkg/inotify"
	"github.com/grovetools/notify/pkg/source"
	"github.com/grovetools/notify/testutil"
)

type harness struct {
	t       *testing.T
	session *Session
	src     *testutil.FakeSource
	updates chan hub.Update
}

func start(t *testing.T, cfg *config.Config, mutate func(*Options)) *harness {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
		cfg.Path = "/w"
	}
	src := testutil.NewFakeSource()
	opts := Options{
		Config:  cfg,
		Factory: func() (source.Source, error) { return src, nil },
		Links: classify.LinkCheckerFunc(func(string) (classify.LinkInfo, error) {
			return classify.LinkInfo{}, fmt.Errorf("no such file")
		}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	// Remember the source Start actually built; mutate may swap the factory.
	var first source.Source
	factory := opts.Factory
	opts.Factory = func() (source.Source, error) {
		built, err := factory()
		if first == nil {
			first = built
		}
		return built, err
	}
	s, err := New(opts)
	require.NoError(t, err)
	h := &harness{t: t, session: s, src: src, updates: s.Hub().Subscribe()}
	require.NoError(t, s.Start(context.Background()))
	if fake, ok := first.(*testutil.FakeSource); ok {
		require.True(t, fake.Started())
	}
	t.Cleanup(func() { _ = s.Close() })
	return h
}

// next returns the next update of type typ, skipping others.
func (h *harness) next(typ hub.UpdateType) hub.Update {
	h.t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-h.updates:
			if !ok {
				h.t.Fatalf("updates closed while waiting for %s", typ)
			}
			if u.Type == typ {
				return u
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func (h *harness) nextEvent() events.Event {
	h.t.Helper()
	u := h.next(hub.UpdateEvent)
	require.NotNil(h.t, u.Event)
	return *u.Event
}

func TestSessionClassifiesCreate(t *testing.T) {
	h := start(t, nil, nil)
	h.src.MarkReady()
	h.next(hub.UpdateReady)

	h.src.Send("/w/f", "CREATE")
	h.src.Send("/w/f", "OPEN")
	h.src.Send("/w/f", "ATTRIB")
	h.src.Send("/w/f", "CLOSE_WRITE", "CLOSE")

	ev := h.nextEvent()
	assert.Equal(t, events.Add, ev.Kind)
	assert.Equal(t, "/w/f", ev.Path)
	assert.False(t, ev.Stats.IsDir)

	require.NoError(t, h.session.Close())
	h.next(hub.UpdateClosed)
	_, ok := <-h.updates
	assert.False(t, ok, "private hub is closed with the session")
}

func TestSessionPairsMove(t *testing.T) {
	h := start(t, nil, nil)
	h.src.Send("/w/a", "MOVED_FROM")
	h.src.Send("/w/b", "MOVED_TO")

	ev := h.nextEvent()
	assert.Equal(t, events.Move, ev.Kind)
	assert.Equal(t, "/w/a", ev.FromPath)
	assert.Equal(t, "/w/b", ev.Path)
}

func TestSessionMoveDeadline(t *testing.T) {
	h := start(t, nil, nil)
	h.src.Send("/w/a", "MOVED_FROM")

	ev := h.nextEvent()
	assert.Equal(t, events.Unlink, ev.Kind)
	assert.Equal(t, "/w/a", ev.Path)
	assert.Equal(t, int64(1), h.session.Counters().Classifier.MovesTimedOut)
}

func TestSessionLinkDisambiguation(t *testing.T) {
	h := start(t, nil, func(o *Options) {
		o.Links = classify.LinkCheckerFunc(func(string) (classify.LinkInfo, error) {
			return classify.LinkInfo{IsSymlink: true}, nil
		})
	})
	h.src.Send("/w/link", "CREATE")

	ev := h.nextEvent()
	assert.Equal(t, events.Add, ev.Kind)
	assert.Equal(t, "/w/link", ev.Path)
}

func TestSessionExcludeGlobs(t *testing.T) {
	cfg := config.Default()
	cfg.Path = "/w"
	cfg.ExcludeGlobs = []string{"**/*.swp", "build"}
	h := start(t, cfg, nil)

	h.src.Send("/w/src/x.swp", "DELETE")
	h.src.Send("/w/build/out.o", "DELETE")
	h.src.Send("/w/keep", "DELETE")

	ev := h.nextEvent()
	assert.Equal(t, "/w/keep", ev.Path)
	assert.Equal(t, int64(2), h.session.Counters().Excluded)
}

func TestSessionReportsErrors(t *testing.T) {
	h := start(t, nil, nil)

	h.src.SendRaw(source.Raw{
		Notification: inotify.Notification{ObservedAt: time.Now()},
		ParseErr:     errors.ParseFailed("garbage", fmt.Errorf("invalid character")),
	})
	u := h.next(hub.UpdateError)
	assert.True(t, errors.Is(u.Err, errors.ErrCodeParse))

	h.src.Send("/w/f", "CREATE", "BOGUS")
	u = h.next(hub.UpdateError)
	assert.True(t, errors.Is(u.Err, errors.ErrCodeUnknownKind))

	h.src.Fail(errors.SourceStderr("inotifywait", "Couldn't watch /w/locked"))
	u = h.next(hub.UpdateError)
	assert.True(t, errors.Is(u.Err, errors.ErrCodeSourceStderr))

	assert.Equal(t, int64(1), h.session.Counters().Classifier.ParseErrors)
}

func TestSessionSourceExit(t *testing.T) {
	h := start(t, nil, nil)
	exitErr := errors.SourceExited("inotifywait", fmt.Errorf("exit status 1"))
	h.src.End(exitErr)

	u := h.next(hub.UpdateExit)
	assert.True(t, errors.Is(u.Err, errors.ErrCodeSourceExit))
	h.next(hub.UpdateClosed)

	err := h.session.Wait()
	assert.True(t, errors.Is(err, errors.ErrCodeSourceExit))
}

func TestSessionCleanEndSettlesPendingMove(t *testing.T) {
	h := start(t, nil, nil)
	h.src.Send("/w/a", "MOVED_FROM")
	h.src.End(nil)

	ev := h.nextEvent()
	assert.Equal(t, events.Unlink, ev.Kind)
	require.NoError(t, h.session.Wait())
}

func TestSessionJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	h := start(t, nil, func(o *Options) { o.Journal = j })
	h.src.Send("/w/gone", "DELETE")
	h.nextEvent()

	entries, err := j.Recent(context.Background(), journal.Filter{Session: h.session.ID()})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, events.Unlink, entries[0].Event.Kind)
}

func TestSessionStartFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Path = "/w"
	s, err := New(Options{
		Config: cfg,
		Factory: func() (source.Source, error) {
			return nil, errors.SourceSpawn("inotifywait", fmt.Errorf("not found"))
		},
	})
	require.NoError(t, err)

	err = s.Start(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeSourceSpawn))
	<-s.Done()
}

func TestNewRequiresWatchTarget(t *testing.T) {
	_, err := New(Options{Config: config.Default()})
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))

	cfg := config.Default()
	cfg.Path = "/w"
	cfg.ExcludeGlobs = []string{"[unclosed"}
	_, err = New(Options{Config: cfg})
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
}

func TestSessionReloadsOnListChange(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "paths.list")
	require.NoError(t, os.WriteFile(list, []byte("/w\n"), 0o644))

	cfg := config.Default()
	cfg.ExplicitPathList = list
	cfg.ReloadOnListChange = true

	var built atomic.Int32
	h := start(t, cfg, func(o *Options) {
		o.Factory = func() (source.Source, error) {
			built.Add(1)
			return testutil.NewFakeSource(), nil
		}
	})

	require.NoError(t, os.WriteFile(list, []byte("/w\n/v\n"), 0o644))
	h.next(hub.UpdateReload)
	assert.Equal(t, int32(2), built.Load())
	assert.Equal(t, int64(1), h.session.Counters().Restarts)
}

func TestSessionWithInotifywait(t *testing.T) {
	testutil.RequireInotifywait(t)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Path = dir
	s, err := New(Options{Config: cfg})
	require.NoError(t, err)
	h := &harness{t: t, session: s, updates: s.Hub().Subscribe()}
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	h.next(hub.UpdateReady)

	path := testutil.WriteFile(t, dir, "a.txt", "hello")
	ev := h.nextEvent()
	assert.Equal(t, events.Add, ev.Kind)
	assert.Equal(t, path, ev.Path)

	require.NoError(t, os.Remove(path))
	for {
		ev = h.nextEvent()
		if ev.Kind != events.Change {
			break
		}
	}
	assert.Equal(t, events.Unlink, ev.Kind)
	assert.Equal(t, path, ev.Path)
}
