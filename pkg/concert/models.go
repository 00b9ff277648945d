package concert

import (
	"fmt"
	"strings"
	"time"
)

// Venue is a concert organizer whose website we scrape. AdapterID selects
// the scraping strategy from the adapter registry.
type Venue struct {
	ID          int64
	Name        string
	City        string
	URL         string
	AdapterID   string
	LastScraped time.Time // zero when the venue has never been scraped
}

// Stub is the minimal summary of a concert taken from a listing page,
// before its detail page has been visited. Stubs are never persisted.
type Stub struct {
	Title       string
	Date        time.Time
	ExternalURL string
}

// DetailPayload is the best-effort result of parsing a concert detail page.
// Performers and Program may both be empty, that is not an error.
type DetailPayload struct {
	Title      string
	Date       time.Time
	City       string
	Performers []Performer
	Program    []ProgramEntry
}

type Concert struct {
	ID          int64
	Title       string
	Date        time.Time
	VenueID     int64
	City        string
	ExternalURL string
	// DedupKey is derived from the listing stub's title and date, not the
	// stored columns. Detail-page overrides of Title or Date never change a
	// concert's identity.
	DedupKey  string
	CreatedAt time.Time
}

// Role classifies a performer on a concert.
type Role string

const (
	RoleConductor Role = "conductor"
	RoleSoloist   Role = "soloist"
	RoleOrchestra Role = "orchestra"
	RoleChoir     Role = "choir"
	RoleOther     Role = "other"
)

type Performer struct {
	Name string
	Role Role
}

type ProgramEntry struct {
	Composer string
	Work     string
	Position int
}

// RunStatus is the user-visible outcome of a scrape run.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusWarning RunStatus = "warning"
	StatusDanger  RunStatus = "danger"
)

// RunResult records how far a single venue run got. It is retained only for
// the life of the run, or until the next run for the venue overwrites it.
type RunResult struct {
	VenueID    int64
	VenueName  string
	Total      int // stubs seen on the listing page
	Saved      int
	Failed     int
	Skipped    int // already-known concerts
	Status     RunStatus
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// AggregateResult is the combined outcome of an all-venues run.
type AggregateResult struct {
	Status  RunStatus
	Message string
	Runs    []*RunResult
}

// DedupKey builds the identity key for a concert: normalized title, date-only
// ISO date and venue id. Date-only precision is intentional, two same-titled
// concerts at one venue on the same date collapse into one record.
func DedupKey(title string, date time.Time, venueID int64) string {
	return fmt.Sprintf("%s|%s|%d", NormalizeTitle(title), date.Format("2006-01-02"), venueID)
}

// NormalizeTitle trims, case-folds and collapses inner whitespace so that
// cosmetic markup differences do not produce distinct keys.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
