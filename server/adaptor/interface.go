package adaptor

import "github.com/ponyo877/codesh/server/domain"

type Usecase interface {
	HandleConnection(requests <-chan domain.Request, events chan<- domain.Event, connID string)
	Stats() domain.RegistryStats
}
