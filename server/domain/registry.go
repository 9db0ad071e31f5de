package domain

import (
	"log"
	"slices"
	"sync"
	"time"
)

const inboxSize = 256

// Registry owns every active session. Each session is served by a single
// goroutine consuming an ordered inbound command channel, so all mutations
// of one session are serialized; the registry itself only routes.
//
// A session is created on the first join naming an unknown identifier and
// destroyed the moment its roster empties. Events addressed to an absent
// session are logged and dropped; the sender is not told.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	outputs  map[string]chan<- Event
	limiter  *CursorLimiter
	stats    RegistryStats
	started  time.Time
}

// RegistryStats is a point-in-time snapshot of registry activity.
type RegistryStats struct {
	ActiveSessions    int
	ActiveConnections int
	TotalEdits        int64
	Uptime            string
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdEdit
	cmdLanguage
	cmdCursor
	cmdActivity
	cmdLeave
)

type command struct {
	kind   commandKind
	connID string
	req    Request
}

type session struct {
	id       string
	registry *Registry
	inbox    chan command

	// Everything below is touched only by the session's own goroutine.
	doc      Document
	roster   []Participant
	cursors  map[string]Position
	activity map[string]activityEntry
}

type activityEntry struct {
	lines LineRange
	at    time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		outputs:  make(map[string]chan<- Event),
		limiter:  NewCursorLimiter(CursorInterval),
		started:  time.Now(),
	}
}

// Register installs the delivery channel for a connection. Broadcasts to the
// connection are non-blocking; events are dropped when the channel is full.
func (r *Registry) Register(connID string, out chan<- Event) {
	r.mu.Lock()
	r.outputs[connID] = out
	r.mu.Unlock()
}

// Unregister removes the connection's delivery channel.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	delete(r.outputs, connID)
	r.mu.Unlock()
}

// Handle routes one decoded client request to its session.
func (r *Registry) Handle(connID string, req Request) {
	if !req.IsValid() {
		log.Printf("dropping invalid %s request from %s", req.Type, connID)
		return
	}
	switch req.Type {
	case RequestJoin:
		r.join(connID, req.SessionID)
	case RequestCodeUpdate:
		r.post(connID, req, command{kind: cmdEdit, connID: connID, req: req})
	case RequestLanguageChange:
		r.post(connID, req, command{kind: cmdLanguage, connID: connID, req: req})
	case RequestCursor:
		if !r.Active(req.SessionID) {
			log.Printf("cursor report for unknown session %s from %s", req.SessionID, connID)
			return
		}
		if !r.limiter.Allow(connID) {
			return
		}
		r.post(connID, req, command{kind: cmdCursor, connID: connID, req: req})
	case RequestActivity:
		r.post(connID, req, command{kind: cmdActivity, connID: connID, req: req})
	}
}

// Disconnect removes the connection from every session it joined and
// releases its rate-limit entry. It is driven by the transport when the
// underlying socket closes and is authoritative regardless of whether the
// client tore down cleanly.
func (r *Registry) Disconnect(connID string) {
	r.limiter.Release(connID)

	r.mu.RLock()
	all := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		s.offer(command{kind: cmdLeave, connID: connID})
	}
}

// Active reports whether the session identifier is currently known.
func (r *Registry) Active(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// TracksCursorLimit reports whether the connection has a live rate-limit
// entry.
func (r *Registry) TracksCursorLimit(connID string) bool {
	return r.limiter.Tracks(connID)
}

// Stats returns a snapshot of registry counters.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := r.stats
	stats.ActiveSessions = len(r.sessions)
	stats.ActiveConnections = len(r.outputs)
	stats.Uptime = time.Since(r.started).String()
	return stats
}

func (r *Registry) join(connID, sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		s = newSession(sessionID, r)
		r.sessions[sessionID] = s
		go s.run()
		log.Printf("created session %s", sessionID)
	}
	delivered := s.offer(command{kind: cmdJoin, connID: connID})
	r.mu.Unlock()
	if !delivered {
		log.Printf("session %s inbox full, dropping join from %s", sessionID, connID)
	}
}

// post offers while the read lock is held, so removeIfEmpty's inbox check
// cannot miss an in-flight command; once a session leaves the map, late
// commands fail the lookup and are dropped as unknown-session traffic.
func (r *Registry) post(connID string, req Request, cmd command) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[req.SessionID]
	if !ok {
		log.Printf("%s for unknown session %s from %s", req.Type, req.SessionID, connID)
		return
	}
	if !s.offer(cmd) {
		log.Printf("session %s inbox full, dropping %s from %s", req.SessionID, req.Type, connID)
	}
}

// removeIfEmpty retires the session once its roster is empty and no further
// commands are queued. Anything still queued keeps the session alive for
// now; the actor keeps draining its inbox and retries after each command,
// so only a queued join can keep it alive for good.
func (r *Registry) removeIfEmpty(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(s.inbox) > 0 {
		return false
	}
	delete(r.sessions, s.id)
	return true
}

// send delivers without blocking while the read lock is held, so Unregister
// cannot race the delivery with the transport closing the channel.
func (r *Registry) send(connID string, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.outputs[connID]
	if !ok {
		return
	}
	select {
	case out <- ev:
	default:
		log.Printf("delivery channel full, dropping %s for %s", ev.Type, connID)
	}
}

func (r *Registry) noteEdit() {
	r.mu.Lock()
	r.stats.TotalEdits++
	r.mu.Unlock()
}

func newSession(id string, r *Registry) *session {
	return &session{
		id:       id,
		registry: r,
		inbox:    make(chan command, inboxSize),
		cursors:  make(map[string]Position),
		activity: make(map[string]activityEntry),
	}
}

// offer enqueues a command without blocking. Commands from one connection
// arrive in send order; across connections there is no ordering guarantee.
func (s *session) offer(cmd command) bool {
	select {
	case s.inbox <- cmd:
		return true
	default:
		return false
	}
}

func (s *session) run() {
	for cmd := range s.inbox {
		switch cmd.kind {
		case cmdJoin:
			s.handleJoin(cmd.connID)
		case cmdEdit:
			s.handleEdit(cmd.connID, cmd.req.Code)
		case cmdLanguage:
			s.handleLanguage(cmd.connID, cmd.req.Language)
		case cmdCursor:
			s.handleCursor(cmd.connID, cmd.req.Position)
		case cmdActivity:
			s.handleActivity(cmd.connID, cmd.req.Lines)
		case cmdLeave:
			s.handleLeave(cmd.connID)
		}
		// Retirement is re-checked after every command, not only after a
		// leave: traffic from a connection that never joined can land while
		// the session is draining and must not keep an empty session alive.
		if len(s.roster) == 0 && s.registry.removeIfEmpty(s) {
			log.Printf("destroyed session %s, no participants remaining", s.id)
			return
		}
	}
}

func (s *session) handleJoin(connID string) {
	if s.member(connID) < 0 {
		s.roster = append(s.roster, NewParticipant(connID))
	}
	joined := s.roster[s.member(connID)]

	// The roster broadcast reaches every member including the joiner; the
	// snapshot goes to the joiner only. Joining never touches the document.
	s.broadcastAll(NewUserJoinedEvent(slices.Clone(s.roster), joined))
	s.registry.send(connID, NewSessionDataEvent(s.doc))
	log.Printf("session %s: %s joined, %d participant(s)", s.id, connID, len(s.roster))
}

func (s *session) handleEdit(connID, code string) {
	s.doc.Text = code
	s.doc.Version++
	s.registry.noteEdit()
	// Echo to the originator is intentional; clients confirm version
	// progression from it without re-applying the content.
	s.broadcastAll(NewCodeUpdatedEvent(code, connID, s.doc.Version))
}

func (s *session) handleLanguage(connID string, language *string) {
	s.doc.Language = language
	s.broadcastAll(NewLanguageChangedEvent(language, connID))
}

func (s *session) handleCursor(connID string, position Position) {
	s.cursors[connID] = position
	s.broadcastExcept(connID, NewRemoteCursorEvent(connID, position))
}

func (s *session) handleActivity(connID string, lines LineRange) {
	now := time.Now()
	s.activity[connID] = activityEntry{lines: lines, at: now}
	s.broadcastAll(NewEditActivityEvent(connID, lines, now))
}

// handleLeave drops the connection's ephemeral state; cursor and activity
// entries can exist for connections that never joined, so they are removed
// before the membership check. A member departure is also announced to the
// remaining roster.
func (s *session) handleLeave(connID string) {
	delete(s.cursors, connID)
	delete(s.activity, connID)
	i := s.member(connID)
	if i < 0 {
		return
	}
	s.roster = slices.Delete(s.roster, i, i+1)
	s.broadcastAll(NewUserLeftEvent(connID, slices.Clone(s.roster)))
	log.Printf("session %s: %s left, %d participant(s) remaining", s.id, connID, len(s.roster))
}

func (s *session) member(connID string) int {
	return slices.IndexFunc(s.roster, func(p Participant) bool { return p.ID == connID })
}

func (s *session) broadcastAll(ev Event) {
	for _, p := range s.roster {
		s.registry.send(p.ID, ev)
	}
}

func (s *session) broadcastExcept(connID string, ev Event) {
	for _, p := range s.roster {
		if p.ID == connID {
			continue
		}
		s.registry.send(p.ID, ev)
	}
}
