package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/concertradar-data/internal/common/db"
	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/internal/scraper"
	"github.com/concertradar-data/pkg/concert"
)

// apiStore is an in-memory Store, Gateway and VenueStore.
type apiStore struct {
	mu       sync.Mutex
	nextID   int64
	venues   map[int64]concert.Venue
	concerts map[string]db.ConcertRecord
}

func newAPIStore(venues ...concert.Venue) *apiStore {
	s := &apiStore{
		nextID:   1,
		venues:   make(map[int64]concert.Venue),
		concerts: make(map[string]db.ConcertRecord),
	}
	for _, v := range venues {
		s.venues[v.ID] = v
		if v.ID >= s.nextID {
			s.nextID = v.ID + 1
		}
	}
	return s
}

func (s *apiStore) GetVenue(ctx context.Context, id int64) (*concert.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *apiStore) ListVenues(ctx context.Context) ([]concert.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	venues := make([]concert.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].ID < venues[j].ID })
	return venues, nil
}

func (s *apiStore) AddVenue(ctx context.Context, v *concert.Venue) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.nextID
	s.nextID++
	s.venues[v.ID] = *v
	return v.ID, nil
}

func (s *apiStore) DeleteVenue(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.venues, id)
	for key, rec := range s.concerts {
		if rec.Concert.VenueID == id {
			delete(s.concerts, key)
		}
	}
	return nil
}

func (s *apiStore) Exists(ctx context.Context, dedupKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.concerts[dedupKey]
	return ok, nil
}

func (s *apiStore) DedupKeys(ctx context.Context, venueID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key, rec := range s.concerts {
		if rec.Concert.VenueID == venueID {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *apiStore) SaveConcert(ctx context.Context, c *concert.Concert, performers []concert.Performer, program []concert.ProgramEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID
	s.nextID++
	s.concerts[c.DedupKey] = db.ConcertRecord{Concert: *c, Performers: performers, Program: program}
	return nil
}

func (s *apiStore) UpdateVenueTimestamp(ctx context.Context, venueID int64, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.venues[venueID]; ok {
		v.LastScraped = ts
		s.venues[venueID] = v
	}
	return nil
}

func (s *apiStore) ListConcerts(ctx context.Context, filter db.ConcertFilter) ([]db.ConcertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []db.ConcertRecord
	for _, rec := range s.concerts {
		if filter.VenueID != 0 && rec.Concert.VenueID != filter.VenueID {
			continue
		}
		if !filter.DateFrom.IsZero() && rec.Concert.Date.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && rec.Concert.Date.After(filter.DateTo) {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Concert.Date.Before(records[j].Concert.Date) })
	return records, nil
}

// staticAdapter serves a fixed stub list.
type staticAdapter struct {
	stubs   []concert.Stub
	release chan struct{} // FetchListing blocks on it when set
	started chan struct{}
}

func (a *staticAdapter) ID() string { return "static" }

func (a *staticAdapter) FetchListing(ctx context.Context, limit int) ([]concert.Stub, error) {
	if a.started != nil {
		close(a.started)
		a.started = nil
	}
	if a.release != nil {
		<-a.release
	}
	if len(a.stubs) > limit {
		return a.stubs[:limit], nil
	}
	return a.stubs, nil
}

func (a *staticAdapter) FetchDetail(ctx context.Context, stub concert.Stub) (*concert.DetailPayload, error) {
	return &concert.DetailPayload{}, nil
}

func newTestServer(store *apiStore, adapter scraper.Adapter) *Server {
	registry := scraper.NewRegistry()
	registry.Register("static", func(venue *concert.Venue) scraper.Adapter { return adapter })
	progress := scraper.NewProgressTracker()
	pipeline := scraper.NewPipeline(store, progress, logger.Nop(), 2)
	orch := scraper.NewOrchestrator(scraper.Config{MaxConcerts: 25, VenueWorkers: 2},
		store, store, registry, pipeline, progress, logger.Nop())
	return New(":0", orch, store, logger.Nop())
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func serverVenue() concert.Venue {
	return concert.Venue{ID: 1, Name: "Test Hall", City: "Warsaw", URL: "https://example.com", AdapterID: "static"}
}

func TestScrapeVenueEndpoint(t *testing.T) {
	store := newAPIStore(serverVenue())
	adapter := &staticAdapter{stubs: []concert.Stub{
		{Title: "Brahms Symphony No.4", Date: time.Date(2024, 5, 1, 19, 30, 0, 0, time.UTC)},
	}}
	srv := newTestServer(store, adapter)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/1/scrape", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeStatus(t, rec)
	require.Equal(t, concert.StatusSuccess, resp.Status)
	require.Contains(t, resp.Message, "Saved 1 new concerts")
}

func TestScrapeVenueEndpointUnknownVenue(t *testing.T) {
	srv := newTestServer(newAPIStore(), &staticAdapter{})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/99/scrape", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, concert.StatusDanger, decodeStatus(t, rec).Status)
}

func TestScrapeVenueEndpointInvalidID(t *testing.T) {
	srv := newTestServer(newAPIStore(), &staticAdapter{})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/abc/scrape", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrapeVenueEndpointConflict(t *testing.T) {
	store := newAPIStore(serverVenue())
	adapter := &staticAdapter{
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	started := adapter.started
	srv := newTestServer(store, adapter)

	done := make(chan struct{})
	go func() {
		defer close(done)
		doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/1/scrape", nil)
	}()

	<-started
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/1/scrape", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, concert.StatusWarning, decodeStatus(t, rec).Status)

	close(adapter.release)
	<-done
}

func TestScrapeAllEndpoint(t *testing.T) {
	store := newAPIStore(serverVenue())
	adapter := &staticAdapter{stubs: []concert.Stub{
		{Title: "Chopin Recital", Date: time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)},
	}}
	srv := newTestServer(store, adapter)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/scrape-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, concert.StatusSuccess, decodeStatus(t, rec).Status)
}

func TestProgressEndpoint(t *testing.T) {
	store := newAPIStore(serverVenue())
	adapter := &staticAdapter{stubs: []concert.Stub{
		{Title: "Mahler Five", Date: time.Date(2024, 7, 1, 19, 30, 0, 0, time.UTC)},
	}}
	srv := newTestServer(store, adapter)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/venues/1/progress", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/1/scrape", nil)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/venues/1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot scraper.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	require.False(t, snapshot.Running)
	require.Equal(t, 1, snapshot.Saved)
}

func TestAddVenueEndpoint(t *testing.T) {
	store := newAPIStore()
	srv := newTestServer(store, &staticAdapter{})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues", map[string]string{
		"name": "Filharmonia Narodowa",
		"city": "Warsaw",
		"url":  "filharmonia.pl/calendar",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	venues, err := store.ListVenues(context.Background())
	require.NoError(t, err)
	require.Len(t, venues, 1)
	require.Equal(t, "https://filharmonia.pl/calendar", venues[0].URL)
	require.Equal(t, "filharmonia_narodowa", venues[0].AdapterID)
}

func TestAddVenueEndpointValidation(t *testing.T) {
	srv := newTestServer(newAPIStore(), &staticAdapter{})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues", map[string]string{"name": "No URL"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteVenueEndpoint(t *testing.T) {
	store := newAPIStore(serverVenue())
	srv := newTestServer(store, &staticAdapter{})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/1/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	venues, err := store.ListVenues(context.Background())
	require.NoError(t, err)
	require.Empty(t, venues)
}

func TestListConcertsEndpoint(t *testing.T) {
	store := newAPIStore(serverVenue())
	adapter := &staticAdapter{stubs: []concert.Stub{
		{Title: "Early Concert", Date: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)},
		{Title: "Late Concert", Date: time.Date(2024, 9, 1, 19, 0, 0, 0, time.UTC)},
	}}
	srv := newTestServer(store, adapter)
	doRequest(t, srv.Handler(), http.MethodPost, "/api/venues/1/scrape", nil)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/concerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []concertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/concerts?date_from=2024-06-01", nil)
	var filtered []concertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	require.Equal(t, "Late Concert", filtered[0].Title)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/concerts?date_from=bogus", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
