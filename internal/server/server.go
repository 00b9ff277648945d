package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/concertradar-data/internal/common/db"
	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/internal/scraper"
	"github.com/concertradar-data/internal/scraper/adapters"
	"github.com/concertradar-data/pkg/concert"
)

// Store is the slice of the record store the API needs. *db.ConcertStore
// satisfies it.
type Store interface {
	ListVenues(ctx context.Context) ([]concert.Venue, error)
	AddVenue(ctx context.Context, v *concert.Venue) (int64, error)
	DeleteVenue(ctx context.Context, id int64) error
	ListConcerts(ctx context.Context, filter db.ConcertFilter) ([]db.ConcertRecord, error)
}

// Server exposes the scrape trigger surface and the record store over a
// JSON API. It owns no pipeline state of its own, every request is resolved
// through the orchestrator and the store.
type Server struct {
	orchestrator *scraper.Orchestrator
	store        Store
	logger       logger.Logger
	httpServer   *http.Server
}

// statusResponse is the shape every trigger endpoint answers with.
type statusResponse struct {
	Status  concert.RunStatus `json:"status"`
	Message string            `json:"message"`
}

func New(addr string, orchestrator *scraper.Orchestrator, store Store, log logger.Logger) *Server {
	s := &Server{
		orchestrator: orchestrator,
		store:        store,
		logger:       log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/venues/{id}/scrape", s.handleScrapeVenue)
	mux.HandleFunc("POST /api/venues/scrape-all", s.handleScrapeAll)
	mux.HandleFunc("POST /api/venues/{id}/delete", s.handleDeleteVenue)
	mux.HandleFunc("GET /api/venues/{id}/progress", s.handleProgress)
	mux.HandleFunc("GET /api/venues", s.handleListVenues)
	mux.HandleFunc("POST /api/venues", s.handleAddVenue)
	mux.HandleFunc("GET /api/concerts", s.handleListConcerts)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleScrapeVenue(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{concert.StatusDanger, "Invalid venue id"})
		return
	}

	result, err := s.orchestrator.ScrapeVenue(r.Context(), venueID)
	switch {
	case errors.Is(err, scraper.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, statusResponse{concert.StatusWarning, "A scrape for this venue is already in progress"})
	case errors.Is(err, scraper.ErrVenueNotFound):
		writeJSON(w, http.StatusNotFound, statusResponse{concert.StatusDanger, result.Message})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, statusResponse{concert.StatusDanger, result.Message})
	default:
		writeJSON(w, http.StatusOK, statusResponse{result.Status, result.Message})
	}
}

func (s *Server) handleScrapeAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.orchestrator.ScrapeAll(r.Context())
	if err != nil {
		s.logger.Error("Scrape-all failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{concert.StatusDanger, "Failed to scrape venues"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{result.Status, result.Message})
}

func (s *Server) handleDeleteVenue(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{concert.StatusDanger, "Invalid venue id"})
		return
	}

	if err := s.store.DeleteVenue(r.Context(), venueID); err != nil {
		s.logger.Error("Venue delete failed", "venue_id", venueID, "error", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{concert.StatusDanger, err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{concert.StatusSuccess, "Venue and associated concerts deleted"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{concert.StatusDanger, "Invalid venue id"})
		return
	}

	snapshot, ok := s.orchestrator.Progress().Get(venueID)
	if !ok {
		writeJSON(w, http.StatusNotFound, statusResponse{concert.StatusWarning, "No run recorded for this venue"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type venueResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	City        string     `json:"city,omitempty"`
	URL         string     `json:"url"`
	AdapterID   string     `json:"adapter_id"`
	LastScraped *time.Time `json:"last_scraped,omitempty"`
}

func (s *Server) handleListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := s.store.ListVenues(r.Context())
	if err != nil {
		s.logger.Error("Venue list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{concert.StatusDanger, "Failed to list venues"})
		return
	}

	resp := make([]venueResponse, 0, len(venues))
	for _, v := range venues {
		item := venueResponse{
			ID:        v.ID,
			Name:      v.Name,
			City:      v.City,
			URL:       v.URL,
			AdapterID: v.AdapterID,
		}
		if !v.LastScraped.IsZero() {
			ts := v.LastScraped
			item.LastScraped = &ts
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

type addVenueRequest struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	URL     string `json:"url"`
	Adapter string `json:"adapter"`
}

func (s *Server) handleAddVenue(w http.ResponseWriter, r *http.Request) {
	var req addVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{concert.StatusDanger, "Invalid request body"})
		return
	}
	if req.Name == "" || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{concert.StatusDanger, "Both name and url are required"})
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		req.URL = "https://" + req.URL
	}

	venue := &concert.Venue{
		Name:      req.Name,
		City:      req.City,
		URL:       req.URL,
		AdapterID: adapters.SelectAdapterID(req.URL, req.Adapter),
	}
	id, err := s.store.AddVenue(r.Context(), venue)
	if err != nil {
		s.logger.Error("Venue add failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{concert.StatusDanger, "Failed to add venue"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  concert.StatusSuccess,
		"message": "Venue added",
		"id":      id,
	})
}

type concertResponse struct {
	ID          int64                  `json:"id"`
	Title       string                 `json:"title"`
	Date        time.Time              `json:"date"`
	VenueID     int64                  `json:"venue_id"`
	City        string                 `json:"city,omitempty"`
	ExternalURL string                 `json:"external_url,omitempty"`
	Performers  []concert.Performer    `json:"performers,omitempty"`
	Program     []concert.ProgramEntry `json:"program,omitempty"`
}

func (s *Server) handleListConcerts(w http.ResponseWriter, r *http.Request) {
	var filter db.ConcertFilter
	q := r.URL.Query()
	if raw := q.Get("venue_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, statusResponse{concert.StatusDanger, "Invalid venue_id"})
			return
		}
		filter.VenueID = id
	}
	for param, dst := range map[string]*time.Time{"date_from": &filter.DateFrom, "date_to": &filter.DateTo} {
		if raw := q.Get(param); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, statusResponse{concert.StatusDanger, "Invalid " + param + ", use YYYY-MM-DD"})
				return
			}
			*dst = t
		}
	}

	records, err := s.store.ListConcerts(r.Context(), filter)
	if err != nil {
		s.logger.Error("Concert list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{concert.StatusDanger, "Failed to list concerts"})
		return
	}

	resp := make([]concertResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, concertResponse{
			ID:          rec.Concert.ID,
			Title:       rec.Concert.Title,
			Date:        rec.Concert.Date,
			VenueID:     rec.Concert.VenueID,
			City:        rec.Concert.City,
			ExternalURL: rec.Concert.ExternalURL,
			Performers:  rec.Performers,
			Program:     rec.Program,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
