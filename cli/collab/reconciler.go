package collab

import "github.com/ponyo877/codesh/wire"

// Surface is the text-editing widget contract the reconciler drives. The
// widget implementation is expected to preserve cursor and scroll position
// across SetValue where possible.
type Surface interface {
	Value() string
	SetValue(text string)
	Selection() (startLine, endLine int)
}

// Sender transmits local state to the session. Sends are fire-and-forget.
type Sender interface {
	SendCodeUpdate(code string)
	SendActivity(startLine, endLine int)
}

// Reconciler merges remote session events into the local editing surface
// without feedback loops. All methods must be called from the client's
// single event loop; the reconciler itself holds no lock.
type Reconciler struct {
	surface Surface
	sender  Sender
	tracker *Tracker
	changes *ChangeLog
	cursors *CursorMap

	self           string
	lastSent       string
	applyingRemote bool
	version        int
}

func NewReconciler(surface Surface, sender Sender, tracker *Tracker, changes *ChangeLog, cursors *CursorMap) *Reconciler {
	return &Reconciler{
		surface: surface,
		sender:  sender,
		tracker: tracker,
		changes: changes,
		cursors: cursors,
	}
}

// SetSelf records this instance's connection identifier, learned from the
// first roster broadcast after joining.
func (r *Reconciler) SetSelf(id string) {
	if r.self == "" {
		r.self = id
	}
}

// Self returns this instance's connection identifier, if known yet.
func (r *Reconciler) Self() string { return r.self }

// Version returns the last confirmed document version.
func (r *Reconciler) Version() int { return r.version }

// SetVersion seeds the version from the joining snapshot.
func (r *Reconciler) SetVersion(v int) { r.version = v }

// HandleLocalChange reacts to a content change reported by the surface. A
// change observed while a remote update is being applied is the update's
// own echo through the widget and is discarded.
func (r *Reconciler) HandleLocalChange() {
	if r.applyingRemote {
		return
	}
	text := r.surface.Value()
	if text == r.lastSent {
		return
	}
	startLine, endLine := r.surface.Selection()
	r.sender.SendActivity(startLine, endLine)
	r.lastSent = text
	r.sender.SendCodeUpdate(text)
}

// HandleCodeUpdated applies a remote edit. The server echoes edits back to
// their originator; for those the only effect is confirming the version.
func (r *Reconciler) HandleCodeUpdated(ev wire.CodeUpdated) {
	if ev.UserID == r.self {
		r.version = ev.Version
		return
	}
	current := r.surface.Value()
	if current == ev.Code {
		r.version = ev.Version
		return
	}

	for _, lines := range DetectChanges(current, ev.Code) {
		r.changes.Add(ev.UserID, lines, lines.Lines(current), lines.Lines(ev.Code))
		r.tracker.Touch(ev.UserID, lines)
	}

	// The flag stays set through SetValue so the surface's change
	// notification is observed and discarded by HandleLocalChange.
	r.applyingRemote = true
	r.surface.SetValue(ev.Code)
	r.lastSent = ev.Code
	r.version = ev.Version
	r.applyingRemote = false
}

// HandleEditActivity records a remote author's editing indicator.
func (r *Reconciler) HandleEditActivity(ev wire.ActivityBroadcast) {
	if ev.UserID == r.self {
		return
	}
	end := ev.EndLineNumber
	if end < ev.LineNumber {
		end = ev.LineNumber
	}
	r.tracker.Touch(ev.UserID, LineRange{StartLine: ev.LineNumber, EndLine: end})
}

// HandleRemoteCursor stores a remote author's latest cursor position.
func (r *Reconciler) HandleRemoteCursor(ev wire.RemoteCursor) {
	if ev.UserID == r.self {
		return
	}
	r.cursors.Set(ev.UserID, ev.Position)
}

// HandleUserLeft discards all ephemeral state for a departed author.
func (r *Reconciler) HandleUserLeft(userID string) {
	r.cursors.Remove(userID)
	r.tracker.Clear(userID)
}

// Seed installs the joining snapshot into the surface without emitting an
// edit for it.
func (r *Reconciler) Seed(data wire.SessionData) {
	r.applyingRemote = true
	r.surface.SetValue(data.Code)
	r.lastSent = data.Code
	r.version = data.DocumentVersion
	r.applyingRemote = false
}
