package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerTouchAndActive(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	defer drainTracker(tr)

	tr.Touch("alice", LineRange{StartLine: 1, EndLine: 2})
	active := tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Author)
	assert.Equal(t, LineRange{StartLine: 1, EndLine: 2}, active[0].Lines)
}

func TestTrackerTouchReplacesRange(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	defer drainTracker(tr)

	tr.Touch("alice", LineRange{StartLine: 1, EndLine: 1})
	tr.Touch("alice", LineRange{StartLine: 5, EndLine: 7})
	active := tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, LineRange{StartLine: 5, EndLine: 7}, active[0].Lines)
}

func TestTrackerExpiresAfterTTL(t *testing.T) {
	expired := make(chan string, 1)
	tr := NewTracker(20*time.Millisecond, func(author string) {
		expired <- author
	})

	tr.Touch("alice", LineRange{StartLine: 1, EndLine: 1})

	select {
	case author := <-expired:
		assert.Equal(t, "alice", author)
	case <-time.After(time.Second):
		t.Fatal("highlight did not expire")
	}
	assert.Empty(t, tr.Active())
}

func TestTrackerTouchResetsExpiry(t *testing.T) {
	tr := NewTracker(100*time.Millisecond, nil)
	defer drainTracker(tr)

	tr.Touch("alice", LineRange{StartLine: 1, EndLine: 1})
	time.Sleep(60 * time.Millisecond)
	tr.Touch("alice", LineRange{StartLine: 1, EndLine: 1})
	time.Sleep(60 * time.Millisecond)

	// 120ms after the first touch but only 60ms after the refresh.
	assert.Len(t, tr.Active(), 1)
}

func TestTrackerClearSkipsCallback(t *testing.T) {
	expired := make(chan string, 1)
	tr := NewTracker(20*time.Millisecond, func(author string) {
		expired <- author
	})

	tr.Touch("alice", LineRange{StartLine: 1, EndLine: 1})
	tr.Clear("alice")
	assert.Empty(t, tr.Active())

	select {
	case <-expired:
		t.Fatal("callback fired for a cleared highlight")
	case <-time.After(60 * time.Millisecond):
	}
}

func drainTracker(tr *Tracker) {
	for _, h := range tr.Active() {
		tr.Clear(h.Author)
	}
}

func TestChangeLogNewestFirstAndBounded(t *testing.T) {
	l := NewChangeLog(2, time.Minute, nil)

	l.Add("alice", LineRange{StartLine: 1, EndLine: 1}, "a", "b")
	l.Add("bob", LineRange{StartLine: 2, EndLine: 2}, "c", "d")
	l.Add("carol", LineRange{StartLine: 3, EndLine: 3}, "e", "f")

	recent := l.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "carol", recent[0].Author)
	assert.Equal(t, "bob", recent[1].Author)
}

func TestChangeLogEntriesExpire(t *testing.T) {
	notified := make(chan struct{}, 1)
	l := NewChangeLog(5, 20*time.Millisecond, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	l.Add("alice", LineRange{StartLine: 1, EndLine: 1}, "a", "b")

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("change log entry did not expire")
	}
	assert.Empty(t, l.Recent())
}

func TestCursorMap(t *testing.T) {
	m := NewCursorMap()
	m.Set("alice", cursorAt(3, 7))
	m.Set("bob", cursorAt(1, 1))
	m.Set("alice", cursorAt(4, 2))

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, cursorAt(4, 2), all["alice"])

	m.Remove("alice")
	assert.Len(t, m.All(), 1)

	// All returns a copy; mutating it must not leak back.
	m.All()["bob"] = cursorAt(9, 9)
	assert.Equal(t, cursorAt(1, 1), m.All()["bob"])
}
