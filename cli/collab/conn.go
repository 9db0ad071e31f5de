package collab

import (
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ponyo877/codesh/wire"
)

const sendBuffer = 64

// Handlers receives decoded server events. Callbacks run on the client's
// read goroutine; UI consumers must marshal onto their own event loop.
type Handlers struct {
	OnUserJoined      func(wire.UserJoined)
	OnSessionData     func(wire.SessionData)
	OnCodeUpdated     func(wire.CodeUpdated)
	OnLanguageChanged func(wire.LanguageChanged)
	OnRemoteCursor    func(wire.RemoteCursor)
	OnEditActivity    func(wire.ActivityBroadcast)
	OnUserLeft        func(wire.UserLeft)
	OnClosed          func(err error)
}

// Client is one WebSocket connection to the sync server. Sends are
// fire-and-forget: they enqueue onto a buffered channel drained by a write
// goroutine and are dropped, not queued further, when the buffer is full.
type Client struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
}

// Dial connects with a bounded number of attempts and a fixed backoff
// between them. There is no resume: a client reconnecting after a drop must
// rejoin and will receive a fresh snapshot.
func Dial(url string, attempts int, backoff time.Duration) (*Client, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(backoff)
		}
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			lastErr = err
			log.Printf("connect attempt %d/%d failed: %v", i+1, attempts, err)
			continue
		}
		return &Client{
			conn: conn,
			out:  make(chan []byte, sendBuffer),
			done: make(chan struct{}),
		}, nil
	}
	return nil, fmt.Errorf("connect to %s: %w", url, lastErr)
}

// Start runs the read and write loops until the connection closes.
func (c *Client) Start(h Handlers) {
	go func() {
		for {
			select {
			case raw := <-c.out:
				if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	go func() {
		defer close(c.done)
		for {
			_, raw, err := c.conn.ReadMessage()
			if err != nil {
				if h.OnClosed != nil {
					h.OnClosed(err)
				}
				return
			}
			c.dispatch(raw, h)
		}
	}()
}

// Close tears the connection down. Server-side cleanup is authoritative and
// driven by the socket closing, not by anything the client sends.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Join asks the server to add this connection to the session.
func (c *Client) Join(sessionID string) {
	c.send(wire.EventJoinSession, wire.JoinSession{SessionID: sessionID})
}

// SendCodeUpdate transmits the full document text.
func (c *Client) SendCodeUpdate(sessionID, code string) {
	c.send(wire.EventCodeUpdate, wire.CodeUpdate{SessionID: sessionID, Code: code})
}

// SendLanguageChange transmits a language tag change.
func (c *Client) SendLanguageChange(sessionID string, language *string) {
	c.send(wire.EventLanguageChange, wire.LanguageChange{SessionID: sessionID, Language: language})
}

// SendCursor reports the local cursor position. The server throttles these
// per connection; dropped reports are never retransmitted.
func (c *Client) SendCursor(sessionID string, position wire.Position) {
	c.send(wire.EventCursorPosition, wire.CursorPosition{SessionID: sessionID, Position: position})
}

// SendActivity reports the line range currently being edited.
func (c *Client) SendActivity(sessionID string, startLine, endLine int) {
	c.send(wire.EventEditActivity, wire.EditActivity{
		SessionID:     sessionID,
		LineNumber:    startLine,
		EndLineNumber: endLine,
	})
}

func (c *Client) send(event string, payload any) {
	raw, err := wire.Encode(event, payload)
	if err != nil {
		log.Printf("encode %s: %v", event, err)
		return
	}
	select {
	case c.out <- raw:
	default:
		log.Printf("send buffer full, dropping %s", event)
	}
}

func (c *Client) dispatch(raw []byte, h Handlers) {
	f, err := wire.DecodeFrame(raw)
	if err != nil {
		log.Printf("dropping malformed server frame: %v", err)
		return
	}
	switch f.Event {
	case wire.EventUserJoined:
		var p wire.UserJoined
		if decodeInto(f, &p) && h.OnUserJoined != nil {
			h.OnUserJoined(p)
		}
	case wire.EventSessionData:
		var p wire.SessionData
		if decodeInto(f, &p) && h.OnSessionData != nil {
			h.OnSessionData(p)
		}
	case wire.EventCodeUpdated:
		var p wire.CodeUpdated
		if decodeInto(f, &p) && h.OnCodeUpdated != nil {
			h.OnCodeUpdated(p)
		}
	case wire.EventLanguageChanged:
		var p wire.LanguageChanged
		if decodeInto(f, &p) && h.OnLanguageChanged != nil {
			h.OnLanguageChanged(p)
		}
	case wire.EventRemoteCursor:
		var p wire.RemoteCursor
		if decodeInto(f, &p) && h.OnRemoteCursor != nil {
			h.OnRemoteCursor(p)
		}
	case wire.EventEditActivity:
		var p wire.ActivityBroadcast
		if decodeInto(f, &p) && h.OnEditActivity != nil {
			h.OnEditActivity(p)
		}
	case wire.EventUserLeft:
		var p wire.UserLeft
		if decodeInto(f, &p) && h.OnUserLeft != nil {
			h.OnUserLeft(p)
		}
	default:
		log.Printf("dropping unknown server event %q", f.Event)
	}
}

func decodeInto(f wire.Frame, v any) bool {
	if err := wire.DecodePayload(f, v); err != nil {
		log.Printf("dropping malformed %s: %v", f.Event, err)
		return false
	}
	return true
}
