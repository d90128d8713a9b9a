package hub

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/pkg/events"
)

func TestPublishFansOut(t *testing.T) {
	h := New(4, 0, nil)
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Subscribers())

	h.Emit("s1", events.NewAdd("/w/a", events.Stats{}))

	for _, ch := range []chan Update{a, b} {
		u := <-ch
		assert.Equal(t, UpdateEvent, u.Type)
		assert.Equal(t, "s1", u.Session)
		require.NotNil(t, u.Event)
		assert.Equal(t, "/w/a", u.Event.Path)
		assert.False(t, u.At.IsZero())
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	h := New(1, 0, nil)
	ch := h.Subscribe()

	h.Publish(Update{Type: UpdateReady})
	h.Publish(Update{Type: UpdateReady})
	h.Publish(Update{Type: UpdateReady})

	assert.Equal(t, uint64(2), h.Dropped())
	assert.Len(t, ch, 1)
}

func TestRecentKeepsNewest(t *testing.T) {
	h := New(0, 2, nil)
	for i := 0; i < 3; i++ {
		h.Emit("s", events.NewChange(fmt.Sprintf("/w/%d", i), events.Stats{}))
	}

	recent := h.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "/w/1", recent[0].Path)
	assert.Equal(t, "/w/2", recent[1].Path)
}

func TestCloseClosesSubscribers(t *testing.T) {
	h := New(0, 0, nil)
	ch := h.Subscribe()
	h.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing and unsubscribing after close are no-ops.
	h.Publish(Update{Type: UpdateEvent})
	h.Unsubscribe(ch)

	late := h.Subscribe()
	select {
	case _, ok := <-late:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription on closed hub should be closed")
	}
}

func TestUpdateJSON(t *testing.T) {
	at := time.Unix(100, 0).UTC()
	u := Update{
		Type:    UpdateError,
		Session: "s",
		At:      at,
		Err:     errors.SourceStderr("inotifywait", "Couldn't watch /x"),
	}
	data, err := json.Marshal(u)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "error", got["type"])
	errObj := got["error"].(map[string]any)
	assert.Equal(t, "SOURCE_STDERR", errObj["code"])
	assert.NotContains(t, got, "event")

	var back Update
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, UpdateError, back.Type)
	assert.Equal(t, at, back.At)
	assert.True(t, errors.Is(back.Err, errors.ErrCodeSourceStderr))
	assert.Equal(t, u.Err.Error(), back.Err.Error())
}

func TestReliableSubscriberGetsEverything(t *testing.T) {
	h := New(1, 0, nil)
	reliable := h.SubscribeReliable()
	lossy := h.Subscribe()

	const n = 2000
	go func() {
		for i := 0; i < n; i++ {
			h.Emit("s", events.NewUnlink(fmt.Sprintf("/w/%d", i), events.Stats{}))
		}
		h.Close()
	}()

	var got []string
	for u := range reliable {
		got = append(got, u.Event.Path)
	}
	require.Len(t, got, n)
	for i, p := range got {
		assert.Equal(t, fmt.Sprintf("/w/%d", i), p)
	}
	// Only the plain subscriber lost updates.
	assert.Positive(t, h.Dropped())
	assert.LessOrEqual(t, len(lossy), 1)
}

func TestUnsubscribeReleasesBlockedPublish(t *testing.T) {
	h := New(1, 0, nil)
	ch := h.SubscribeReliable()

	published := make(chan struct{})
	go func() {
		h.Publish(Update{Type: UpdateReady})
		h.Publish(Update{Type: UpdateReady}) // blocks: buffer full, nobody reads
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("publish should wait for the reliable subscriber")
	case <-time.After(50 * time.Millisecond):
	}

	h.Unsubscribe(ch)
	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("unsubscribe should release the publisher")
	}
	assert.Equal(t, 0, h.Subscribers())
}

func TestSubscribeWithRecentDoesNotRepeat(t *testing.T) {
	h := New(0, 10, nil)
	h.Emit("s", events.NewAdd("/w/old", events.Stats{}))

	ch, recent := h.SubscribeWithRecent()
	require.Len(t, recent, 1)
	assert.Equal(t, "/w/old", recent[0].Path)

	h.Emit("s", events.NewAdd("/w/new", events.Stats{}))
	u := <-ch
	assert.Equal(t, "/w/new", u.Event.Path)
	assert.Empty(t, ch)

	h.Close()
	ch, recent = h.SubscribeWithRecent()
	assert.Nil(t, recent)
	_, ok := <-ch
	assert.False(t, ok)
}
