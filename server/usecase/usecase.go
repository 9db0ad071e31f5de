package usecase

import (
	"log"

	"github.com/ponyo877/codesh/server/domain"
)

// Usecase orchestrates one WebSocket connection's lifetime against the
// session registry.
type Usecase struct {
	registry SessionRegistry
}

func NewUsecase(registry SessionRegistry) *Usecase {
	return &Usecase{registry: registry}
}

// HandleConnection pumps decoded requests from one connection into the
// registry until the request channel closes, then performs the
// authoritative server-side cleanup. Requests are consumed in arrival
// order, preserving the per-connection FIFO guarantee.
func (u *Usecase) HandleConnection(requests <-chan domain.Request, events chan<- domain.Event, connID string) {
	u.registry.Register(connID, events)
	defer func() {
		u.registry.Disconnect(connID)
		u.registry.Unregister(connID)
		log.Printf("connection %s cleaned up", connID)
	}()

	for req := range requests {
		u.registry.Handle(connID, req)
	}
}

// Stats exposes registry counters for the health endpoint.
func (u *Usecase) Stats() domain.RegistryStats {
	return u.registry.Stats()
}
