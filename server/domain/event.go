package domain

import "time"

type EventType int

const (
	EventUserJoined EventType = iota
	EventSessionData
	EventCodeUpdated
	EventLanguageChanged
	EventRemoteCursor
	EventEditActivity
	EventUserLeft
)

func (t EventType) String() string {
	switch t {
	case EventUserJoined:
		return "user-joined"
	case EventSessionData:
		return "session-data"
	case EventCodeUpdated:
		return "code-updated"
	case EventLanguageChanged:
		return "language-changed"
	case EventRemoteCursor:
		return "remote-cursor"
	case EventEditActivity:
		return "edit-activity"
	case EventUserLeft:
		return "user-left"
	default:
		return "unknown"
	}
}

// Event is one broadcast delivered to a connection. Only the fields
// relevant to the event type are populated.
type Event struct {
	Type      EventType
	Users     []Participant
	User      Participant
	UserID    string
	Code      string
	Language  *string
	Version   int
	Position  Position
	Lines     LineRange
	Timestamp time.Time
}

func NewUserJoinedEvent(users []Participant, joined Participant) Event {
	return Event{Type: EventUserJoined, Users: users, User: joined}
}

func NewSessionDataEvent(doc Document) Event {
	return Event{
		Type:     EventSessionData,
		Code:     doc.Text,
		Language: doc.Language,
		Version:  doc.Version,
	}
}

func NewCodeUpdatedEvent(code, userID string, version int) Event {
	return Event{Type: EventCodeUpdated, Code: code, UserID: userID, Version: version}
}

func NewLanguageChangedEvent(language *string, userID string) Event {
	return Event{Type: EventLanguageChanged, Language: language, UserID: userID}
}

func NewRemoteCursorEvent(userID string, position Position) Event {
	return Event{Type: EventRemoteCursor, UserID: userID, Position: position}
}

func NewEditActivityEvent(userID string, lines LineRange, at time.Time) Event {
	return Event{Type: EventEditActivity, UserID: userID, Lines: lines, Timestamp: at}
}

func NewUserLeftEvent(userID string, remaining []Participant) Event {
	return Event{Type: EventUserLeft, UserID: userID, Users: remaining}
}
