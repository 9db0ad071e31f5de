package adaptor

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ponyo877/codesh/server/domain"
	"github.com/ponyo877/codesh/wire"
)

const channelSize = 32

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Adaptor bridges WebSocket connections and the session usecase. It decodes
// the tagged wire schema at the connection boundary and rejects malformed
// payloads before they can reach any session state.
type Adaptor struct {
	uc Usecase
}

func NewAdaptor(uc Usecase) *Adaptor {
	return &Adaptor{uc: uc}
}

// HandleSocket upgrades the request and runs the connection to completion.
// The read loop feeds an ordered request channel consumed by the usecase;
// a separate goroutine drains broadcast events back onto the socket.
func (a *Adaptor) HandleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log.Printf("client connected: %s (%s)", connID, conn.RemoteAddr())

	requests := make(chan domain.Request, channelSize)
	events := make(chan domain.Event, channelSize)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		a.uc.HandleConnection(requests, events, connID)
	}()

	go func() {
		for ev := range events {
			raw, err := encodeEvent(ev)
			if err != nil {
				log.Printf("encode %s for %s: %v", ev.Type, connID, err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				log.Printf("write to %s failed: %v", connID, err)
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("client %s disconnected", connID)
			} else {
				log.Printf("client %s disconnected: %v", connID, err)
			}
			break
		}
		req, err := decodeRequest(raw)
		if err != nil {
			log.Printf("rejecting malformed message from %s: %v", connID, err)
			continue
		}
		requests <- req
	}

	close(requests)
	<-done
}

// HandleHealth reports registry counters as JSON.
func (a *Adaptor) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.uc.Stats()); err != nil {
		log.Printf("write health response: %v", err)
	}
}

func decodeRequest(raw []byte) (domain.Request, error) {
	f, err := wire.DecodeFrame(raw)
	if err != nil {
		return domain.Request{}, err
	}
	switch f.Event {
	case wire.EventJoinSession:
		var p wire.JoinSession
		if err := wire.DecodePayload(f, &p); err != nil {
			return domain.Request{}, err
		}
		return domain.NewJoinRequest(p.SessionID), nil
	case wire.EventCodeUpdate:
		var p wire.CodeUpdate
		if err := wire.DecodePayload(f, &p); err != nil {
			return domain.Request{}, err
		}
		return domain.NewCodeUpdateRequest(p.SessionID, p.Code), nil
	case wire.EventLanguageChange:
		var p wire.LanguageChange
		if err := wire.DecodePayload(f, &p); err != nil {
			return domain.Request{}, err
		}
		return domain.NewLanguageChangeRequest(p.SessionID, p.Language), nil
	case wire.EventCursorPosition:
		var p wire.CursorPosition
		if err := wire.DecodePayload(f, &p); err != nil {
			return domain.Request{}, err
		}
		return domain.NewCursorRequest(p.SessionID, domain.Position{
			LineNumber: p.Position.LineNumber,
			Column:     p.Position.Column,
		}), nil
	case wire.EventEditActivity:
		var p wire.EditActivity
		if err := wire.DecodePayload(f, &p); err != nil {
			return domain.Request{}, err
		}
		end := p.EndLineNumber
		if end == 0 {
			end = p.LineNumber
		}
		return domain.NewActivityRequest(p.SessionID, domain.LineRange{
			StartLine: p.LineNumber,
			EndLine:   end,
		}), nil
	default:
		return domain.Request{}, &UnknownEventError{Event: f.Event}
	}
}

// UnknownEventError marks a frame whose event name is outside the closed
// schema.
type UnknownEventError struct {
	Event string
}

func (e *UnknownEventError) Error() string {
	return "unknown event: " + e.Event
}

func encodeEvent(ev domain.Event) ([]byte, error) {
	switch ev.Type {
	case domain.EventUserJoined:
		return wire.Encode(wire.EventUserJoined, wire.UserJoined{
			Users:      toWireUsers(ev.Users),
			JoinedUser: wire.User{ID: ev.User.ID, Color: ev.User.Color},
		})
	case domain.EventSessionData:
		return wire.Encode(wire.EventSessionData, wire.SessionData{
			Code:            ev.Code,
			Language:        ev.Language,
			DocumentVersion: ev.Version,
		})
	case domain.EventCodeUpdated:
		return wire.Encode(wire.EventCodeUpdated, wire.CodeUpdated{
			Code:    ev.Code,
			UserID:  ev.UserID,
			Version: ev.Version,
		})
	case domain.EventLanguageChanged:
		return wire.Encode(wire.EventLanguageChanged, wire.LanguageChanged{
			Language: ev.Language,
			UserID:   ev.UserID,
		})
	case domain.EventRemoteCursor:
		return wire.Encode(wire.EventRemoteCursor, wire.RemoteCursor{
			UserID: ev.UserID,
			Position: wire.Position{
				LineNumber: ev.Position.LineNumber,
				Column:     ev.Position.Column,
			},
		})
	case domain.EventEditActivity:
		return wire.Encode(wire.EventEditActivity, wire.ActivityBroadcast{
			UserID:        ev.UserID,
			LineNumber:    ev.Lines.StartLine,
			EndLineNumber: ev.Lines.EndLine,
			Timestamp:     ev.Timestamp.UnixMilli(),
		})
	case domain.EventUserLeft:
		return wire.Encode(wire.EventUserLeft, wire.UserLeft{
			UserID:         ev.UserID,
			RemainingUsers: toWireUsers(ev.Users),
		})
	default:
		return nil, &UnknownEventError{Event: ev.Type.String()}
	}
}

func toWireUsers(ps []domain.Participant) []wire.User {
	users := make([]wire.User, len(ps))
	for i, p := range ps {
		users[i] = wire.User{ID: p.ID, Color: p.Color}
	}
	return users
}
