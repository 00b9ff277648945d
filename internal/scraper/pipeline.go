package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/pkg/concert"
)

// Pipeline drives one venue run: listing, per-stub detail fetch, dedup check
// and atomic persist. Fetch, parse and persist failures are contained at
// single-stub granularity; no stage failure aborts the loop.
type Pipeline struct {
	gateway       Gateway
	progress      *ProgressTracker
	logger        logger.Logger
	detailWorkers int
}

func NewPipeline(gateway Gateway, progress *ProgressTracker, log logger.Logger, detailWorkers int) *Pipeline {
	if detailWorkers < 1 {
		detailWorkers = 1
	}
	return &Pipeline{
		gateway:       gateway,
		progress:      progress,
		logger:        log,
		detailWorkers: detailWorkers,
	}
}

// Run executes one venue run bounded by maxConcerts. A non-nil error means
// the run failed before any stub was processed; otherwise the returned
// RunResult reflects however far the run got, including under cancellation.
func (p *Pipeline) Run(ctx context.Context, venue *concert.Venue, adapter Adapter, maxConcerts int) (*concert.RunResult, error) {
	result := &concert.RunResult{
		VenueID:   venue.ID,
		VenueName: venue.Name,
		StartedAt: time.Now().UTC(),
	}

	stubs, err := adapter.FetchListing(ctx, maxConcerts)
	if err != nil {
		result.FinishedAt = time.Now().UTC()
		p.logger.Error("Listing fetch failed", "venue_id", venue.ID, "error", err)
		return result, err
	}
	// The adapter already limits the listing, this is a backstop.
	if len(stubs) > maxConcerts {
		stubs = stubs[:maxConcerts]
	}

	seed, err := p.gateway.DedupKeys(ctx, venue.ID)
	if err != nil {
		result.FinishedAt = time.Now().UTC()
		return result, &PersistError{Op: "loading dedup keys", Err: err}
	}
	index := NewDedupIndex(seed)

	result.Total = len(stubs)
	p.progress.Begin(venue.ID, len(stubs))
	defer p.progress.Finish(venue.ID)

	p.logger.Info("Starting venue run",
		"venue_id", venue.ID,
		"venue", venue.Name,
		"stubs", len(stubs),
		"known_keys", index.Len())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, p.detailWorkers)
	)

	for _, stub := range stubs {
		// Cancellation is checked between stubs so a stopped run still
		// returns a partial result.
		if ctx.Err() != nil {
			p.logger.Warn("Run cancelled, returning partial result",
				"venue_id", venue.ID,
				"saved", result.Saved)
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(stub concert.Stub) {
			defer wg.Done()
			defer func() { <-sem }()
			p.processStub(ctx, venue, adapter, index, stub, result, &mu)
		}(stub)
	}
	wg.Wait()

	result.FinishedAt = time.Now().UTC()
	p.logger.Info("Venue run finished",
		"venue_id", venue.ID,
		"total", result.Total,
		"saved", result.Saved,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

func (p *Pipeline) processStub(ctx context.Context, venue *concert.Venue, adapter Adapter, index *DedupIndex, stub concert.Stub, result *concert.RunResult, mu *sync.Mutex) {
	key := concert.DedupKey(stub.Title, stub.Date, venue.ID)

	// Add claims the key atomically, a concurrent stub with the same key is
	// skipped here rather than racing to a double insert.
	if !index.Add(key) {
		mu.Lock()
		result.Skipped++
		mu.Unlock()
		p.progress.AddSkipped(venue.ID)
		p.logger.Debug("Skipping already-known concert", "venue_id", venue.ID, "title", stub.Title)
		return
	}

	detail, err := adapter.FetchDetail(ctx, stub)
	if err != nil {
		index.Remove(key)
		p.markFailed(venue.ID, result, mu)
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			p.logger.Warn("Detail fetch failed", "venue_id", venue.ID, "url", stub.ExternalURL, "error", err)
		} else {
			p.logger.Warn("Detail parse failed", "venue_id", venue.ID, "url", stub.ExternalURL, "error", err)
		}
		return
	}

	c := &concert.Concert{
		Title:       stub.Title,
		Date:        stub.Date,
		VenueID:     venue.ID,
		City:        venue.City,
		ExternalURL: stub.ExternalURL,
		DedupKey:    key,
	}
	if detail.Title != "" {
		c.Title = detail.Title
	}
	if !detail.Date.IsZero() {
		c.Date = detail.Date
	}
	if detail.City != "" {
		c.City = detail.City
	}

	if err := p.gateway.SaveConcert(ctx, c, detail.Performers, detail.Program); err != nil {
		index.Remove(key)
		p.markFailed(venue.ID, result, mu)
		p.logger.Error("Concert save failed", "venue_id", venue.ID, "title", c.Title, "error", err)
		return
	}

	mu.Lock()
	result.Saved++
	mu.Unlock()
	p.progress.AddSaved(venue.ID)
	p.logger.Info("Saved concert",
		"venue_id", venue.ID,
		"title", c.Title,
		"date", c.Date.Format("2006-01-02"))
}

func (p *Pipeline) markFailed(venueID int64, result *concert.RunResult, mu *sync.Mutex) {
	mu.Lock()
	result.Failed++
	mu.Unlock()
	p.progress.AddFailed(venueID)
}
