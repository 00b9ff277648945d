package scraper

import (
	"github.com/concertradar-data/pkg/concert"
)

// AdapterFactory builds an adapter bound to one venue.
type AdapterFactory func(venue *concert.Venue) Adapter

// Registry maps adapter ids to factories. It is populated once before any
// run starts and read-only afterwards.
type Registry struct {
	factories map[string]AdapterFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]AdapterFactory)}
}

func (r *Registry) Register(id string, factory AdapterFactory) {
	r.factories[id] = factory
}

// Resolve returns an adapter for the venue, or an AdapterResolutionError
// when the venue's adapter id is unknown.
func (r *Registry) Resolve(venue *concert.Venue) (Adapter, error) {
	factory, ok := r.factories[venue.AdapterID]
	if !ok {
		return nil, &AdapterResolutionError{AdapterID: venue.AdapterID}
	}
	return factory(venue), nil
}

// IDs returns the registered adapter ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	return ids
}
