package collab

import (
	"sync"

	"github.com/ponyo877/codesh/wire"
)

// CursorMap holds the latest reported cursor per remote author. There is no
// expiry: a report simply supersedes the previous one until the author
// leaves.
type CursorMap struct {
	mu        sync.Mutex
	positions map[string]wire.Position
}

func NewCursorMap() *CursorMap {
	return &CursorMap{positions: make(map[string]wire.Position)}
}

func (m *CursorMap) Set(author string, position wire.Position) {
	m.mu.Lock()
	m.positions[author] = position
	m.mu.Unlock()
}

func (m *CursorMap) Remove(author string) {
	m.mu.Lock()
	delete(m.positions, author)
	m.mu.Unlock()
}

// All returns a copy of the current cursor map; rendering is a pure
// function of it.
func (m *CursorMap) All() map[string]wire.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]wire.Position, len(m.positions))
	for author, pos := range m.positions {
		out[author] = pos
	}
	return out
}
