// Package adapters holds the per-venue scraping strategies. Each adapter
// implements scraper.Adapter for one kind of venue website; the registry
// maps adapter ids to factories bound to a shared page fetcher.
package adapters

import (
	"net/url"
	"strings"

	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/internal/scraper"
	"github.com/concertradar-data/pkg/concert"
)

const (
	AdapterGeneric     = "generic"
	AdapterClassical   = "classical"
	AdapterFilharmonia = "filharmonia_narodowa"
)

// DefaultRegistry builds the adapter registry used in production. It is
// resolved once before any run starts.
func DefaultRegistry(fetcher scraper.PageFetcher, log logger.Logger) *scraper.Registry {
	registry := scraper.NewRegistry()
	registry.Register(AdapterGeneric, func(venue *concert.Venue) scraper.Adapter {
		return NewGeneric(venue, fetcher, log)
	})
	// The classical id is kept for venues registered under the older name,
	// it shares the generic heuristics.
	registry.Register(AdapterClassical, func(venue *concert.Venue) scraper.Adapter {
		return NewGeneric(venue, fetcher, log)
	})
	registry.Register(AdapterFilharmonia, func(venue *concert.Venue) scraper.Adapter {
		return NewFilharmonia(venue, fetcher, log)
	})
	return registry
}

// SelectAdapterID picks an adapter id for a new venue. Known domains get
// their specialized adapter, everything else falls back to the requested id
// or generic.
func SelectAdapterID(venueURL, requested string) string {
	if strings.Contains(strings.ToLower(venueURL), "filharmonia.pl") {
		return AdapterFilharmonia
	}
	if requested != "" {
		return requested
	}
	return AdapterGeneric
}

// resolveURL joins a possibly-relative href against the page base.
func resolveURL(base, href string) string {
	if href == "" {
		return base
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base
	}
	return baseURL.ResolveReference(ref).String()
}
