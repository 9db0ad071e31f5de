package usecase

import "github.com/ponyo877/codesh/server/domain"

// SessionRegistry is the domain surface this layer drives: one routing
// entry point per decoded request plus connection lifecycle hooks.
type SessionRegistry interface {
	Register(connID string, out chan<- domain.Event)
	Unregister(connID string)
	Handle(connID string, req domain.Request)
	Disconnect(connID string)
	Stats() domain.RegistryStats
}
