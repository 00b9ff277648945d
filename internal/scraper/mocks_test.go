package scraper

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/pkg/concert"
)

// fakeAdapter is a scriptable Adapter for pipeline and orchestrator tests.
type fakeAdapter struct {
	id         string
	stubs      []concert.Stub
	listingErr error
	panicMsg   string

	ignoreLimit bool
	detailErr   map[string]error // keyed by stub title
	details     map[string]*concert.DetailPayload

	listingStarted chan struct{} // closed when FetchListing is entered, if set
	blockListing   chan struct{} // FetchListing waits for it to close, if set
	cancelRun      context.CancelFunc
	cancelAfter    int
	detailCalls    int
	mu             sync.Mutex
}

func (f *fakeAdapter) ID() string {
	if f.id == "" {
		return "fake"
	}
	return f.id
}

func (f *fakeAdapter) FetchListing(ctx context.Context, limit int) ([]concert.Stub, error) {
	if f.listingStarted != nil {
		close(f.listingStarted)
		f.listingStarted = nil
	}
	if f.blockListing != nil {
		<-f.blockListing
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.listingErr != nil {
		return nil, f.listingErr
	}
	stubs := f.stubs
	if !f.ignoreLimit && len(stubs) > limit {
		stubs = stubs[:limit]
	}
	return stubs, nil
}

func (f *fakeAdapter) FetchDetail(ctx context.Context, stub concert.Stub) (*concert.DetailPayload, error) {
	f.mu.Lock()
	f.detailCalls++
	if f.cancelRun != nil && f.detailCalls >= f.cancelAfter {
		f.cancelRun()
	}
	f.mu.Unlock()

	if err, ok := f.detailErr[stub.Title]; ok {
		return nil, err
	}
	if detail, ok := f.details[stub.Title]; ok {
		return detail, nil
	}
	return &concert.DetailPayload{}, nil
}

// memStore is an in-memory Gateway and VenueStore.
type memStore struct {
	mu         sync.Mutex
	venues     map[int64]concert.Venue
	concerts   map[string]concert.Concert // by dedup key
	failSaves  map[string]int             // dedup key -> remaining failures
	timestamps map[int64][]time.Time
}

func newMemStore(venues ...concert.Venue) *memStore {
	s := &memStore{
		venues:     make(map[int64]concert.Venue),
		concerts:   make(map[string]concert.Concert),
		failSaves:  make(map[string]int),
		timestamps: make(map[int64][]time.Time),
	}
	for _, v := range venues {
		s.venues[v.ID] = v
	}
	return s
}

func (s *memStore) GetVenue(ctx context.Context, id int64) (*concert.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *memStore) ListVenues(ctx context.Context) ([]concert.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	venues := make([]concert.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].ID < venues[j].ID })
	return venues, nil
}

func (s *memStore) Exists(ctx context.Context, dedupKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.concerts[dedupKey]
	return ok, nil
}

func (s *memStore) DedupKeys(ctx context.Context, venueID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key, c := range s.concerts {
		if c.VenueID == venueID {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *memStore) SaveConcert(ctx context.Context, c *concert.Concert, performers []concert.Performer, program []concert.ProgramEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.failSaves[c.DedupKey]; n > 0 {
		s.failSaves[c.DedupKey] = n - 1
		return &PersistError{Op: "insert concert", Err: context.DeadlineExceeded}
	}
	s.concerts[c.DedupKey] = *c
	return nil
}

func (s *memStore) UpdateVenueTimestamp(ctx context.Context, venueID int64, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timestamps[venueID] = append(s.timestamps[venueID], ts)
	if v, ok := s.venues[venueID]; ok && ts.After(v.LastScraped) {
		v.LastScraped = ts
		s.venues[venueID] = v
	}
	return nil
}

func (s *memStore) concertCount(venueID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.concerts {
		if c.VenueID == venueID {
			count++
		}
	}
	return count
}

func (s *memStore) timestampUpdates(venueID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timestamps[venueID])
}

func stubsFor(venueID int64, titles ...string) []concert.Stub {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	stubs := make([]concert.Stub, 0, len(titles))
	for i, title := range titles {
		stubs = append(stubs, concert.Stub{
			Title:       title,
			Date:        date.AddDate(0, 0, i),
			ExternalURL: "https://example.com/concerts",
		})
	}
	return stubs
}

func newTestPipeline(store *memStore, detailWorkers int) (*Pipeline, *ProgressTracker) {
	progress := NewProgressTracker()
	return NewPipeline(store, progress, logger.Nop(), detailWorkers), progress
}

func newTestOrchestrator(store *memStore, adapters map[string]*fakeAdapter, maxConcerts int) *Orchestrator {
	registry := NewRegistry()
	for id, adapter := range adapters {
		a := adapter
		registry.Register(id, func(venue *concert.Venue) Adapter { return a })
	}
	progress := NewProgressTracker()
	pipeline := NewPipeline(store, progress, logger.Nop(), 2)
	return NewOrchestrator(Config{MaxConcerts: maxConcerts, VenueWorkers: 2},
		store, store, registry, pipeline, progress, logger.Nop())
}
