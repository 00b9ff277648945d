package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/pkg/concert"
)

// Notifier receives run summaries. Failures to notify never affect the run.
type Notifier interface {
	NotifyRun(result *concert.RunResult) error
}

// Config bounds the orchestrator: how many new concerts one run may persist
// and how many venue runs scrape-all executes in parallel.
type Config struct {
	MaxConcerts  int
	VenueWorkers int
}

// Orchestrator is the top-level driver for venue runs. It guarantees at most
// one in-flight run per venue through a lock-guarded active-run registry;
// the registry entry is cleared on every exit path.
type Orchestrator struct {
	config   Config
	venues   VenueStore
	gateway  Gateway
	registry *Registry
	pipeline *Pipeline
	progress *ProgressTracker
	notifier Notifier
	logger   logger.Logger

	mu     sync.Mutex
	active map[int64]struct{}
}

func NewOrchestrator(cfg Config, venues VenueStore, gateway Gateway, registry *Registry, pipeline *Pipeline, progress *ProgressTracker, log logger.Logger) *Orchestrator {
	if cfg.MaxConcerts < 1 {
		cfg.MaxConcerts = 25
	}
	if cfg.VenueWorkers < 1 {
		cfg.VenueWorkers = 4
	}
	return &Orchestrator{
		config:   cfg,
		venues:   venues,
		gateway:  gateway,
		registry: registry,
		pipeline: pipeline,
		progress: progress,
		logger:   log,
		active:   make(map[int64]struct{}),
	}
}

// SetNotifier attaches an optional run-summary notifier.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notifier = n
}

// Progress exposes the process-wide progress tracker.
func (o *Orchestrator) Progress() *ProgressTracker {
	return o.progress
}

// ScrapeVenue runs the pipeline for one venue. A missing venue or adapter
// yields a danger result with no side effects. When a run for the venue is
// already active the error is ErrRunInProgress and no new run starts.
func (o *Orchestrator) ScrapeVenue(ctx context.Context, venueID int64) (*concert.RunResult, error) {
	venue, err := o.venues.GetVenue(ctx, venueID)
	if err != nil {
		return failedToStart(venueID, "", fmt.Sprintf("Error resolving venue: %v", err)), err
	}
	if venue == nil {
		return failedToStart(venueID, "", fmt.Sprintf("Venue %d not found", venueID)), ErrVenueNotFound
	}

	adapter, err := o.registry.Resolve(venue)
	if err != nil {
		return failedToStart(venueID, venue.Name, err.Error()), err
	}

	if !o.tryAcquire(venueID) {
		o.logger.Warn("Scrape already in progress", "venue_id", venueID)
		return nil, ErrRunInProgress
	}
	defer o.release(venueID)

	return o.runVenue(ctx, venue, adapter), nil
}

// runVenue executes the pipeline with panic containment so one venue's
// failure can never take down an all-venues run.
func (o *Orchestrator) runVenue(ctx context.Context, venue *concert.Venue, adapter Adapter) (result *concert.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Venue run panicked", "venue_id", venue.ID, "panic", r)
			result = failedToStart(venue.ID, venue.Name, fmt.Sprintf("Scrape failed: %v", r))
		}
	}()

	result, runErr := o.pipeline.Run(ctx, venue, adapter, o.config.MaxConcerts)
	o.finalize(ctx, venue, result, runErr)
	return result
}

func (o *Orchestrator) finalize(ctx context.Context, venue *concert.Venue, result *concert.RunResult, runErr error) {
	switch {
	case runErr != nil:
		// The adapter failed before any stub was processed.
		result.Status = concert.StatusDanger
		result.Message = fmt.Sprintf("Scrape failed: %v", runErr)
	case result.Saved > 0 && result.Failed == 0:
		result.Status = concert.StatusSuccess
		result.Message = fmt.Sprintf("Saved %d new concerts (%d duplicates skipped)", result.Saved, result.Skipped)
	case result.Saved > 0:
		result.Status = concert.StatusWarning
		result.Message = fmt.Sprintf("Saved %d new concerts, %d items failed (%d duplicates skipped)",
			result.Saved, result.Failed, result.Skipped)
	default:
		// Zero saved without a fatal adapter error is a warning, not a
		// failure: the listing may simply hold nothing new.
		result.Status = concert.StatusWarning
		result.Message = fmt.Sprintf("No new concerts saved (%d duplicates skipped, %d items failed)",
			result.Skipped, result.Failed)
	}

	// last_scraped moves only on a run that actually saved something.
	if result.Saved > 0 {
		if err := o.gateway.UpdateVenueTimestamp(ctx, venue.ID, time.Now().UTC()); err != nil {
			o.logger.Error("Failed to update venue timestamp", "venue_id", venue.ID, "error", err)
		}
	}

	if o.notifier != nil {
		if err := o.notifier.NotifyRun(result); err != nil {
			o.logger.Warn("Run notification failed", "venue_id", venue.ID, "error", err)
		}
	}
}

// ScrapeAll runs every venue, concurrently bounded by the venue worker cap.
// One venue's failure is recorded as its own entry and never stops the rest.
func (o *Orchestrator) ScrapeAll(ctx context.Context) (*concert.AggregateResult, error) {
	venues, err := o.venues.ListVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing venues: %w", err)
	}
	if len(venues) == 0 {
		return &concert.AggregateResult{
			Status:  concert.StatusWarning,
			Message: "No venues configured",
		}, nil
	}

	o.logger.Info("Starting all-venues run", "venues", len(venues), "workers", o.config.VenueWorkers)

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.config.VenueWorkers)
	// results holds one slot per venue in listing order, so the aggregate
	// is stable regardless of completion order.
	results := make([]*concert.RunResult, len(venues))

	for i, venue := range venues {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, venueID int64, venueName string) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := o.ScrapeVenue(ctx, venueID)
			if result == nil {
				result = failedToStart(venueID, venueName, fmt.Sprintf("Scrape failed: %v", err))
			}
			results[i] = result
		}(i, venue.ID, venue.Name)
	}
	wg.Wait()

	return aggregate(results), nil
}

func aggregate(results []*concert.RunResult) *concert.AggregateResult {
	allSuccess := true
	allFailedOrEmpty := true
	var saved, failed int
	for _, r := range results {
		saved += r.Saved
		failed += r.Failed
		if r.Status != concert.StatusSuccess {
			allSuccess = false
		}
		if r.Status != concert.StatusDanger && r.Saved > 0 {
			allFailedOrEmpty = false
		}
	}

	agg := &concert.AggregateResult{Runs: results}
	switch {
	case allSuccess:
		agg.Status = concert.StatusSuccess
		agg.Message = fmt.Sprintf("All %d venues scraped successfully, %d new concerts", len(results), saved)
	case allFailedOrEmpty:
		agg.Status = concert.StatusDanger
		agg.Message = "No venue produced any new concerts"
	default:
		agg.Status = concert.StatusWarning
		agg.Message = fmt.Sprintf("Scraped %d venues with %d new concerts, %d item failures", len(results), saved, failed)
	}
	return agg
}

func (o *Orchestrator) tryAcquire(venueID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.active[venueID]; running {
		return false
	}
	o.active[venueID] = struct{}{}
	return true
}

func (o *Orchestrator) release(venueID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, venueID)
}

func failedToStart(venueID int64, venueName, message string) *concert.RunResult {
	now := time.Now().UTC()
	return &concert.RunResult{
		VenueID:    venueID,
		VenueName:  venueName,
		Status:     concert.StatusDanger,
		Message:    message,
		StartedAt:  now,
		FinishedAt: now,
	}
}
