package domain

type RequestType int

const (
	RequestJoin RequestType = iota
	RequestCodeUpdate
	RequestLanguageChange
	RequestCursor
	RequestActivity
)

func (t RequestType) String() string {
	switch t {
	case RequestJoin:
		return "join-session"
	case RequestCodeUpdate:
		return "code-update"
	case RequestLanguageChange:
		return "language-change"
	case RequestCursor:
		return "cursor-position"
	case RequestActivity:
		return "edit-activity"
	default:
		return "unknown"
	}
}

// Request is one decoded client event addressed to a session. Only the
// fields relevant to the request type are populated.
type Request struct {
	Type      RequestType
	SessionID string
	Code      string
	Language  *string
	Position  Position
	Lines     LineRange
}

func NewJoinRequest(sessionID string) Request {
	return Request{Type: RequestJoin, SessionID: sessionID}
}

func NewCodeUpdateRequest(sessionID, code string) Request {
	return Request{Type: RequestCodeUpdate, SessionID: sessionID, Code: code}
}

func NewLanguageChangeRequest(sessionID string, language *string) Request {
	return Request{Type: RequestLanguageChange, SessionID: sessionID, Language: language}
}

func NewCursorRequest(sessionID string, position Position) Request {
	return Request{Type: RequestCursor, SessionID: sessionID, Position: position}
}

func NewActivityRequest(sessionID string, lines LineRange) Request {
	return Request{Type: RequestActivity, SessionID: sessionID, Lines: lines}
}

func (r Request) IsValid() bool {
	if r.SessionID == "" {
		return false
	}
	switch r.Type {
	case RequestJoin, RequestCodeUpdate, RequestLanguageChange:
		return true
	case RequestCursor:
		return r.Position.LineNumber >= 1 && r.Position.Column >= 1
	case RequestActivity:
		return r.Lines.StartLine >= 1 && r.Lines.EndLine >= r.Lines.StartLine
	default:
		return false
	}
}
