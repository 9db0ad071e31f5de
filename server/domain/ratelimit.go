package domain

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CursorInterval is the minimum gap between accepted cursor reports from a
// single connection, bounding cursor broadcast to roughly 30 Hz.
const CursorInterval = 33 * time.Millisecond

// CursorLimiter throttles per-connection cursor reports. Reports arriving
// faster than the configured interval are dropped, not queued; the next
// accepted report carries whatever position is current at that time.
type CursorLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	perConn  map[string]*rate.Limiter
}

func NewCursorLimiter(interval time.Duration) *CursorLimiter {
	return &CursorLimiter{
		interval: interval,
		perConn:  make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a cursor update from the connection may be
// broadcast now. The connection's entry is created on first use.
func (l *CursorLimiter) Allow(connID string) bool {
	l.mu.Lock()
	lim, ok := l.perConn[connID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.perConn[connID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Release drops the connection's entry. Called on disconnect.
func (l *CursorLimiter) Release(connID string) {
	l.mu.Lock()
	delete(l.perConn, connID)
	l.mu.Unlock()
}

// Tracks reports whether the connection currently has an entry.
func (l *CursorLimiter) Tracks(connID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.perConn[connID]
	return ok
}
