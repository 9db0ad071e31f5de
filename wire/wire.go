// Package wire defines the tagged message schema exchanged between the
// codesh client and the sync server. Every frame is a JSON object of the
// form {"event": <name>, "data": <payload>}; payloads are validated at the
// connection boundary before they reach any session state.
package wire

import (
	"encoding/json"
	"fmt"
)

// Client-to-server event names.
const (
	EventJoinSession    = "join-session"
	EventCodeUpdate     = "code-update"
	EventLanguageChange = "language-change"
	EventCursorPosition = "cursor-position"
	EventEditActivity   = "edit-activity"
)

// Server-to-client event names.
const (
	EventUserJoined      = "user-joined"
	EventSessionData     = "session-data"
	EventCodeUpdated     = "code-updated"
	EventLanguageChanged = "language-changed"
	EventRemoteCursor    = "remote-cursor"
	EventUserLeft        = "user-left"
	// EventEditActivity is reused verbatim for the server-side rebroadcast.
)

// Frame is the envelope for every message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Position is a cursor location inside the shared document.
type Position struct {
	LineNumber int `json:"lineNumber"`
	Column     int `json:"column"`
}

// User is one participant as seen on the wire.
type User struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// JoinSession asks the server to add this connection to a session,
// creating the session if it does not exist yet.
type JoinSession struct {
	SessionID string `json:"sessionId"`
}

// CodeUpdate replaces the session's document text.
type CodeUpdate struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
}

// LanguageChange sets the session's language tag. A nil Language clears it.
type LanguageChange struct {
	SessionID string  `json:"sessionId"`
	Language  *string `json:"language"`
}

// CursorPosition reports the sender's latest cursor location.
type CursorPosition struct {
	SessionID string   `json:"sessionId"`
	Position  Position `json:"position"`
}

// EditActivity reports the line range the sender is currently editing.
type EditActivity struct {
	SessionID     string `json:"sessionId"`
	LineNumber    int    `json:"lineNumber"`
	EndLineNumber int    `json:"endLineNumber"`
}

// UserJoined carries the full updated roster after a join. It is delivered
// to every member of the session, the joiner included.
type UserJoined struct {
	Users      []User `json:"users"`
	JoinedUser User   `json:"joinedUser"`
}

// SessionData is the document snapshot sent to a joining connection only.
type SessionData struct {
	Code            string  `json:"code"`
	Language        *string `json:"language"`
	DocumentVersion int     `json:"documentVersion"`
}

// CodeUpdated is the rebroadcast of an accepted edit. It is echoed to the
// originator as well; clients rely on the echo to confirm version
// progression.
type CodeUpdated struct {
	Code    string `json:"code"`
	UserID  string `json:"userId"`
	Version int    `json:"version"`
}

// LanguageChanged is the rebroadcast of an accepted language change.
type LanguageChanged struct {
	Language *string `json:"language"`
	UserID   string  `json:"userId"`
}

// RemoteCursor is a cursor report forwarded to everyone except its sender.
type RemoteCursor struct {
	UserID   string   `json:"userId"`
	Position Position `json:"position"`
}

// ActivityBroadcast is the rebroadcast of an edit-activity report, stamped
// with the server's receipt time in Unix milliseconds.
type ActivityBroadcast struct {
	UserID        string `json:"userId"`
	LineNumber    int    `json:"lineNumber"`
	EndLineNumber int    `json:"endLineNumber"`
	Timestamp     int64  `json:"timestamp"`
}

// UserLeft announces a departed participant together with the remaining
// roster.
type UserLeft struct {
	UserID         string `json:"userId"`
	RemainingUsers []User `json:"remainingUsers"`
}

// Encode wraps a payload in a Frame and marshals it.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// DecodeFrame parses the envelope without touching the payload.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("decode frame: missing event name")
	}
	return f, nil
}

// DecodePayload unmarshals a frame's payload into the given variant.
func DecodePayload(f Frame, v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("decode %s: empty payload", f.Event)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", f.Event, err)
	}
	return nil
}
