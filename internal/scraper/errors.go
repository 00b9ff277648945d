package scraper

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced directly to the caller. Neither creates any
// partial state.
var (
	// ErrRunInProgress signals that a run for the venue is already active.
	ErrRunInProgress = errors.New("scrape run already in progress for this venue")

	// ErrVenueNotFound signals that the requested venue does not exist.
	ErrVenueNotFound = errors.New("venue not found")
)

// FetchError wraps a network or timeout failure reaching a page. Inside the
// pipeline it is contained at single-stub granularity.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError signals that a mandatory identity field (title or date) could
// not be recovered from a page. Missing performers or program entries are
// never a ParseError.
type ParseError struct {
	URL   string
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: missing mandatory field %q", e.URL, e.Field)
}

// PersistError wraps a failed storage write.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting (%s): %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// AdapterResolutionError signals that no adapter is registered for a venue's
// adapter id. The run never starts.
type AdapterResolutionError struct {
	AdapterID string
}

func (e *AdapterResolutionError) Error() string {
	return fmt.Sprintf("no adapter registered for id %q", e.AdapterID)
}
