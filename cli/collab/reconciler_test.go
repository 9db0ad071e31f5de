package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/codesh/wire"
)

type fakeSurface struct {
	text     string
	selStart int
	selEnd   int
	onChange func()
}

func (s *fakeSurface) Value() string { return s.text }

func (s *fakeSurface) SetValue(text string) {
	s.text = text
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *fakeSurface) Selection() (int, int) { return s.selStart, s.selEnd }

type recordingSender struct {
	codes      []string
	activities []LineRange
}

func (s *recordingSender) SendCodeUpdate(code string) {
	s.codes = append(s.codes, code)
}

func (s *recordingSender) SendActivity(startLine, endLine int) {
	s.activities = append(s.activities, LineRange{StartLine: startLine, EndLine: endLine})
}

func cursorAt(line, col int) wire.Position {
	return wire.Position{LineNumber: line, Column: col}
}

func newTestReconciler() (*Reconciler, *fakeSurface, *recordingSender, *Tracker, *ChangeLog, *CursorMap) {
	surface := &fakeSurface{selStart: 1, selEnd: 1}
	sender := &recordingSender{}
	tracker := NewTracker(time.Minute, nil)
	changes := NewChangeLog(RecentChangeLimit, time.Minute, nil)
	cursors := NewCursorMap()
	rec := NewReconciler(surface, sender, tracker, changes, cursors)
	surface.onChange = rec.HandleLocalChange
	return rec, surface, sender, tracker, changes, cursors
}

func TestLocalChangeIsTransmittedWithActivity(t *testing.T) {
	rec, surface, sender, _, _, _ := newTestReconciler()
	rec.SetSelf("me")

	surface.selStart, surface.selEnd = 2, 3
	surface.SetValue("hello")

	require.Equal(t, []string{"hello"}, sender.codes)
	require.Equal(t, []LineRange{{StartLine: 2, EndLine: 3}}, sender.activities)
}

func TestUnchangedTextIsNotRetransmitted(t *testing.T) {
	rec, surface, sender, _, _, _ := newTestReconciler()
	rec.SetSelf("me")

	surface.SetValue("hello")
	require.Len(t, sender.codes, 1)

	// The widget may report a change event without a content change.
	rec.HandleLocalChange()
	assert.Len(t, sender.codes, 1)
}

func TestRemoteUpdateDoesNotEchoBack(t *testing.T) {
	rec, surface, sender, tracker, changes, _ := newTestReconciler()
	rec.SetSelf("me")
	rec.Seed(wire.SessionData{Code: "a\nb\nc", DocumentVersion: 3})
	require.Empty(t, sender.codes)

	rec.HandleCodeUpdated(wire.CodeUpdated{Code: "a\nX\nc", UserID: "them", Version: 4})

	assert.Equal(t, "a\nX\nc", surface.Value())
	assert.Equal(t, 4, rec.Version())
	// Applying the update triggered the surface's change notification, but
	// nothing was sent back.
	assert.Empty(t, sender.codes)
	assert.Empty(t, sender.activities)

	active := tracker.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "them", active[0].Author)
	assert.Equal(t, LineRange{StartLine: 2, EndLine: 2}, active[0].Lines)

	recent := changes.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].OldText)
	assert.Equal(t, "X", recent[0].NewText)
}

func TestOwnEchoOnlyConfirmsVersion(t *testing.T) {
	rec, surface, sender, _, changes, _ := newTestReconciler()
	rec.SetSelf("me")

	surface.SetValue("hello")
	require.Equal(t, []string{"hello"}, sender.codes)

	rec.HandleCodeUpdated(wire.CodeUpdated{Code: "hello", UserID: "me", Version: 1})

	assert.Equal(t, 1, rec.Version())
	assert.Equal(t, "hello", surface.Value())
	assert.Len(t, sender.codes, 1)
	assert.Empty(t, changes.Recent())
}

func TestRemoteUpdateMatchingCurrentTextIsVersionOnly(t *testing.T) {
	rec, surface, _, tracker, changes, _ := newTestReconciler()
	rec.SetSelf("me")
	rec.Seed(wire.SessionData{Code: "same", DocumentVersion: 1})

	rec.HandleCodeUpdated(wire.CodeUpdated{Code: "same", UserID: "them", Version: 2})

	assert.Equal(t, 2, rec.Version())
	assert.Equal(t, "same", surface.Value())
	assert.Empty(t, tracker.Active())
	assert.Empty(t, changes.Recent())
}

func TestSeedInstallsSnapshotSilently(t *testing.T) {
	rec, surface, sender, _, _, _ := newTestReconciler()

	rec.Seed(wire.SessionData{Code: "seeded", DocumentVersion: 7})

	assert.Equal(t, "seeded", surface.Value())
	assert.Equal(t, 7, rec.Version())
	assert.Empty(t, sender.codes)
	assert.Empty(t, sender.activities)
}

func TestSetSelfIsWriteOnce(t *testing.T) {
	rec, _, _, _, _, _ := newTestReconciler()
	rec.SetSelf("me")
	rec.SetSelf("other")
	assert.Equal(t, "me", rec.Self())
}

func TestEditActivitySkipsSelfAndFixesRange(t *testing.T) {
	rec, _, _, tracker, _, _ := newTestReconciler()
	rec.SetSelf("me")

	rec.HandleEditActivity(wire.ActivityBroadcast{UserID: "me", LineNumber: 1, EndLineNumber: 2})
	assert.Empty(t, tracker.Active())

	rec.HandleEditActivity(wire.ActivityBroadcast{UserID: "them", LineNumber: 5, EndLineNumber: 0})
	active := tracker.Active()
	require.Len(t, active, 1)
	assert.Equal(t, LineRange{StartLine: 5, EndLine: 5}, active[0].Lines)
}

func TestRemoteCursorSkipsSelf(t *testing.T) {
	rec, _, _, _, _, cursors := newTestReconciler()
	rec.SetSelf("me")

	rec.HandleRemoteCursor(wire.RemoteCursor{UserID: "me", Position: cursorAt(1, 1)})
	assert.Empty(t, cursors.All())

	rec.HandleRemoteCursor(wire.RemoteCursor{UserID: "them", Position: cursorAt(3, 7)})
	assert.Equal(t, cursorAt(3, 7), cursors.All()["them"])
}

func TestUserLeftClearsEphemeralState(t *testing.T) {
	rec, _, _, tracker, _, cursors := newTestReconciler()
	rec.SetSelf("me")

	rec.HandleRemoteCursor(wire.RemoteCursor{UserID: "them", Position: cursorAt(3, 7)})
	rec.HandleEditActivity(wire.ActivityBroadcast{UserID: "them", LineNumber: 1, EndLineNumber: 1})

	rec.HandleUserLeft("them")

	assert.Empty(t, cursors.All())
	assert.Empty(t, tracker.Active())
}
