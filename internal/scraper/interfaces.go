package scraper

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/concertradar-data/pkg/concert"
)

// Adapter knows how to fetch and parse one venue website. FetchListing must
// not fail the whole run on a single malformed item: stubs missing a
// mandatory field (title or date) are dropped and logged. FetchDetail
// returns a best-effort payload, absent performers or program entries are
// not an error.
type Adapter interface {
	ID() string
	FetchListing(ctx context.Context, limit int) ([]concert.Stub, error)
	FetchDetail(ctx context.Context, stub concert.Stub) (*concert.DetailPayload, error)
}

// Gateway is the storage contract the pipeline requires. SaveConcert must
// persist the concert with its performers and program as one atomic unit.
type Gateway interface {
	Exists(ctx context.Context, dedupKey string) (bool, error)
	DedupKeys(ctx context.Context, venueID int64) ([]string, error)
	SaveConcert(ctx context.Context, c *concert.Concert, performers []concert.Performer, program []concert.ProgramEntry) error
	UpdateVenueTimestamp(ctx context.Context, venueID int64, ts time.Time) error
}

// VenueStore resolves venues for the orchestrator.
type VenueStore interface {
	GetVenue(ctx context.Context, id int64) (*concert.Venue, error)
	ListVenues(ctx context.Context) ([]concert.Venue, error)
}

// PageFetcher retrieves one page as a parsed document. Implementations carry
// a bounded timeout; expiry fails the single item, not the run.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}
