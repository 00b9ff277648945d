package scraper

import "sync"

// DedupIndex tracks which dedup keys are already known within a run. It is
// seeded from the persisted concert set for the venue and updated in place
// as new concerts are saved, so duplicates inside one listing are caught too.
type DedupIndex struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewDedupIndex(seed []string) *DedupIndex {
	keys := make(map[string]struct{}, len(seed))
	for _, k := range seed {
		keys[k] = struct{}{}
	}
	return &DedupIndex{keys: keys}
}

func (d *DedupIndex) Contains(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.keys[key]
	return ok
}

// Add claims the key, returning false when it is already present. Check and
// insert happen under one lock, so two concurrent stubs with the same key
// can never both pass.
func (d *DedupIndex) Add(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.keys[key]; ok {
		return false
	}
	d.keys[key] = struct{}{}
	return true
}

// Remove releases a key claimed by Add when the concert ultimately failed to
// persist, so a later identical stub is not falsely skipped.
func (d *DedupIndex) Remove(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
}

func (d *DedupIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}
