package collab

import (
	"sync"
	"time"
)

const (
	// HighlightTTL is how long an "actively editing here" indicator lives
	// without being refreshed by new activity from the same author.
	HighlightTTL = 2 * time.Second

	// RecentChangeTTL is how long a recent-change entry stays displayable.
	RecentChangeTTL = 15 * time.Second

	// RecentChangeLimit bounds the recent-change log, newest first.
	RecentChangeLimit = 5
)

// Highlight is one author's transient editing indicator.
type Highlight struct {
	Author string
	Lines  LineRange
	At     time.Time
}

type trackedHighlight struct {
	highlight Highlight
	timer     *time.Timer
}

// Tracker holds time-windowed per-author editing highlights. New activity
// from an author replaces both the range and the expiry timer; silence for
// the TTL clears the author's highlight and fires the expiry callback.
//
// The callback runs on a timer goroutine; callers rendering from it must
// marshal back onto their own event loop.
type Tracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	active   map[string]*trackedHighlight
	onExpire func(author string)
}

func NewTracker(ttl time.Duration, onExpire func(author string)) *Tracker {
	return &Tracker{
		ttl:      ttl,
		active:   make(map[string]*trackedHighlight),
		onExpire: onExpire,
	}
}

// Touch records or refreshes the author's highlight.
func (t *Tracker) Touch(author string, lines LineRange) {
	t.mu.Lock()
	if prev, ok := t.active[author]; ok {
		prev.timer.Stop()
	}
	t.active[author] = &trackedHighlight{
		highlight: Highlight{Author: author, Lines: lines, At: time.Now()},
		timer: time.AfterFunc(t.ttl, func() {
			t.expire(author)
		}),
	}
	t.mu.Unlock()
}

// Clear drops the author's highlight immediately, without firing the expiry
// callback. Used when the author leaves the session.
func (t *Tracker) Clear(author string) {
	t.mu.Lock()
	if prev, ok := t.active[author]; ok {
		prev.timer.Stop()
		delete(t.active, author)
	}
	t.mu.Unlock()
}

// Active returns the live highlights.
func (t *Tracker) Active() []Highlight {
	t.mu.Lock()
	defer t.mu.Unlock()
	highlights := make([]Highlight, 0, len(t.active))
	for _, tr := range t.active {
		highlights = append(highlights, tr.highlight)
	}
	return highlights
}

func (t *Tracker) expire(author string) {
	t.mu.Lock()
	_, ok := t.active[author]
	if ok {
		delete(t.active, author)
	}
	t.mu.Unlock()
	if ok && t.onExpire != nil {
		t.onExpire(author)
	}
}

// RecentChange is one display-log entry describing a remote edit.
type RecentChange struct {
	ID      int64
	Author  string
	Lines   LineRange
	OldText string
	NewText string
	At      time.Time
}

type changeEntry struct {
	change RecentChange
	timer  *time.Timer
}

// ChangeLog is the bounded, self-expiring display log of remote edits.
type ChangeLog struct {
	mu       sync.Mutex
	limit    int
	ttl      time.Duration
	next     int64
	entries  []*changeEntry // newest first
	onExpire func()
}

func NewChangeLog(limit int, ttl time.Duration, onExpire func()) *ChangeLog {
	return &ChangeLog{
		limit:    limit,
		ttl:      ttl,
		onExpire: onExpire,
	}
}

// Add prepends an entry, evicting the oldest beyond the limit. The entry
// removes itself after the TTL.
func (l *ChangeLog) Add(author string, lines LineRange, oldText, newText string) {
	l.mu.Lock()
	l.next++
	id := l.next
	entry := &changeEntry{
		change: RecentChange{
			ID:      id,
			Author:  author,
			Lines:   lines,
			OldText: oldText,
			NewText: newText,
			At:      time.Now(),
		},
		timer: time.AfterFunc(l.ttl, func() {
			l.remove(id, true)
		}),
	}
	l.entries = append([]*changeEntry{entry}, l.entries...)
	for len(l.entries) > l.limit {
		evicted := l.entries[len(l.entries)-1]
		evicted.timer.Stop()
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.mu.Unlock()
}

// Recent returns the live entries, newest first.
func (l *ChangeLog) Recent() []RecentChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	changes := make([]RecentChange, len(l.entries))
	for i, e := range l.entries {
		changes[i] = e.change
	}
	return changes
}

func (l *ChangeLog) remove(id int64, notify bool) {
	l.mu.Lock()
	removed := false
	for i, e := range l.entries {
		if e.change.ID == id {
			e.timer.Stop()
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			removed = true
			break
		}
	}
	l.mu.Unlock()
	if removed && notify && l.onExpire != nil {
		l.onExpire()
	}
}
