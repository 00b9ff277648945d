package scraper

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of one venue's current or most recent run.
type Snapshot struct {
	VenueID   int64     `json:"venue_id"`
	Running   bool      `json:"running"`
	Total     int       `json:"total"`
	Saved     int       `json:"saved"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	StartedAt time.Time `json:"started_at"`
}

// ProgressTracker holds process-wide, run-scoped counters per venue. Counter
// updates for one venue are serialized; readers may query at any time while
// a run is in flight.
type ProgressTracker struct {
	mu   sync.Mutex
	runs map[int64]*Snapshot
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{runs: make(map[int64]*Snapshot)}
}

// Begin resets the venue's counters for a new run. The previous run's
// snapshot is overwritten.
func (t *ProgressTracker) Begin(venueID int64, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[venueID] = &Snapshot{
		VenueID:   venueID,
		Running:   true,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
}

func (t *ProgressTracker) AddSaved(venueID int64) {
	t.update(venueID, func(s *Snapshot) { s.Saved++ })
}

func (t *ProgressTracker) AddFailed(venueID int64) {
	t.update(venueID, func(s *Snapshot) { s.Failed++ })
}

func (t *ProgressTracker) AddSkipped(venueID int64) {
	t.update(venueID, func(s *Snapshot) { s.Skipped++ })
}

func (t *ProgressTracker) Finish(venueID int64) {
	t.update(venueID, func(s *Snapshot) { s.Running = false })
}

// Get returns a copy of the venue's snapshot, or false when the venue has
// not run in this process.
func (t *ProgressTracker) Get(venueID int64) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.runs[venueID]
	if !ok {
		return Snapshot{}, false
	}
	return *s, true
}

func (t *ProgressTracker) update(venueID int64, fn func(*Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.runs[venueID]; ok {
		fn(s)
	}
}
