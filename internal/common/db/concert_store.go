package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/concertradar-data/pkg/concert"
)

// ConcertStore is the storage side of the ingestion pipeline. Every concert
// is written together with its performers and program entries in a single
// transaction, so a mid-run crash never leaves orphaned rows behind.
type ConcertStore struct {
	db *DB
}

func NewConcertStore(db *DB) *ConcertStore {
	return &ConcertStore{db: db}
}

func (s *ConcertStore) GetVenue(ctx context.Context, id int64) (*concert.Venue, error) {
	query := `
		SELECT id, name, city, url, adapter_id, last_scraped
		FROM venues
		WHERE id = $1
	`

	var v concert.Venue
	var city sql.NullString
	var lastScraped sql.NullTime
	err := s.db.conn.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.Name,
		&city,
		&v.URL,
		&v.AdapterID,
		&lastScraped,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying venue %d: %w", id, err)
	}

	v.City = city.String
	if lastScraped.Valid {
		v.LastScraped = lastScraped.Time
	}
	return &v, nil
}

func (s *ConcertStore) ListVenues(ctx context.Context) ([]concert.Venue, error) {
	query := `
		SELECT id, name, city, url, adapter_id, last_scraped
		FROM venues
		ORDER BY id
	`

	rows, err := s.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying venues: %w", err)
	}
	defer rows.Close()

	var venues []concert.Venue
	for rows.Next() {
		var v concert.Venue
		var city sql.NullString
		var lastScraped sql.NullTime
		if err := rows.Scan(&v.ID, &v.Name, &city, &v.URL, &v.AdapterID, &lastScraped); err != nil {
			return nil, fmt.Errorf("scanning venue: %w", err)
		}
		v.City = city.String
		if lastScraped.Valid {
			v.LastScraped = lastScraped.Time
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func (s *ConcertStore) AddVenue(ctx context.Context, v *concert.Venue) (int64, error) {
	query := `
		INSERT INTO venues (name, city, url, adapter_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := s.db.conn.QueryRowContext(ctx, query,
		v.Name,
		sql.NullString{String: v.City, Valid: v.City != ""},
		v.URL,
		v.AdapterID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting venue: %w", err)
	}

	s.db.logger.Info("Added venue", "venue_id", id, "name", v.Name)
	return id, nil
}

// DeleteVenue removes a venue together with all of its concerts, performers
// and program entries.
func (s *ConcertStore) DeleteVenue(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM performers WHERE concert_id IN (SELECT id FROM concerts WHERE venue_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("deleting performers: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM program_entries WHERE concert_id IN (SELECT id FROM concerts WHERE venue_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("deleting program entries: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM concerts WHERE venue_id = $1`, id); err != nil {
		return fmt.Errorf("deleting concerts: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting venue: %w", err)
	}

	rowsDeleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsDeleted == 0 {
		return fmt.Errorf("venue %d not found", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.db.logger.Info("Deleted venue and associated concerts", "venue_id", id)
	return nil
}

// DedupKeys loads the keys of all concerts already persisted for a venue.
// The pipeline seeds its in-run index with these before processing stubs.
func (s *ConcertStore) DedupKeys(ctx context.Context, venueID int64) ([]string, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT dedup_key FROM concerts WHERE venue_id = $1`, venueID)
	if err != nil {
		return nil, fmt.Errorf("querying dedup keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning dedup key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *ConcertStore) Exists(ctx context.Context, dedupKey string) (bool, error) {
	var exists bool
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM concerts WHERE dedup_key = $1)`, dedupKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking dedup key: %w", err)
	}
	return exists, nil
}

// SaveConcert persists a concert with its performers and program entries as
// one atomic unit.
func (s *ConcertStore) SaveConcert(ctx context.Context, c *concert.Concert, performers []concert.Performer, program []concert.ProgramEntry) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO concerts (title, date, venue_id, city, external_url, dedup_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var concertID int64
	err = tx.QueryRowContext(ctx, query,
		c.Title,
		c.Date,
		c.VenueID,
		sql.NullString{String: c.City, Valid: c.City != ""},
		c.ExternalURL,
		c.DedupKey,
	).Scan(&concertID)
	if err != nil {
		return fmt.Errorf("inserting concert: %w", err)
	}

	for _, p := range performers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO performers (concert_id, name, role) VALUES ($1, $2, $3)`,
			concertID, p.Name, string(p.Role))
		if err != nil {
			return fmt.Errorf("inserting performer: %w", err)
		}
	}

	for _, entry := range program {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO program_entries (concert_id, composer, work, position) VALUES ($1, $2, $3, $4)`,
			concertID, entry.Composer, entry.Work, entry.Position)
		if err != nil {
			return fmt.Errorf("inserting program entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	c.ID = concertID
	s.db.logger.Debug("Saved concert",
		"concert_id", concertID,
		"title", c.Title,
		"venue_id", c.VenueID)
	return nil
}

// UpdateVenueTimestamp advances last_scraped. GREATEST keeps the column
// monotonically non-decreasing even if runs finish out of order.
func (s *ConcertStore) UpdateVenueTimestamp(ctx context.Context, venueID int64, ts time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE venues SET last_scraped = GREATEST(COALESCE(last_scraped, 'epoch'::timestamptz), $2) WHERE id = $1`,
		venueID, ts)
	if err != nil {
		return fmt.Errorf("updating venue timestamp: %w", err)
	}
	return nil
}

// ConcertFilter narrows a concert listing query. Zero values mean no filter.
type ConcertFilter struct {
	VenueID  int64
	DateFrom time.Time
	DateTo   time.Time
}

// ConcertRecord is a concert joined with its performers and program.
type ConcertRecord struct {
	Concert    concert.Concert
	Performers []concert.Performer
	Program    []concert.ProgramEntry
}

// ListConcerts returns persisted concerts ordered by date, with performers
// and program entries attached.
func (s *ConcertStore) ListConcerts(ctx context.Context, filter ConcertFilter) ([]ConcertRecord, error) {
	query := `
		SELECT id, title, date, venue_id, city, external_url, dedup_key
		FROM concerts
		WHERE ($1 = 0 OR venue_id = $1)
		  AND ($2::timestamptz IS NULL OR date >= $2)
		  AND ($3::timestamptz IS NULL OR date <= $3)
		ORDER BY date
	`

	var from, to sql.NullTime
	if !filter.DateFrom.IsZero() {
		from = sql.NullTime{Time: filter.DateFrom, Valid: true}
	}
	if !filter.DateTo.IsZero() {
		to = sql.NullTime{Time: filter.DateTo, Valid: true}
	}

	rows, err := s.db.conn.QueryContext(ctx, query, filter.VenueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying concerts: %w", err)
	}
	defer rows.Close()

	var records []ConcertRecord
	byID := make(map[int64]*ConcertRecord)
	var ids []int64
	for rows.Next() {
		var c concert.Concert
		var city sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &c.Date, &c.VenueID, &city, &c.ExternalURL, &c.DedupKey); err != nil {
			return nil, fmt.Errorf("scanning concert: %w", err)
		}
		c.City = city.String
		records = append(records, ConcertRecord{Concert: c})
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range records {
		byID[records[i].Concert.ID] = &records[i]
	}
	if len(ids) == 0 {
		return records, nil
	}

	if err := s.attachPerformers(ctx, ids, byID); err != nil {
		return nil, err
	}
	if err := s.attachProgram(ctx, ids, byID); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *ConcertStore) attachPerformers(ctx context.Context, ids []int64, byID map[int64]*ConcertRecord) error {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT concert_id, name, role
		FROM performers
		WHERE concert_id = ANY($1)
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("querying performers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var concertID int64
		var p concert.Performer
		var role string
		if err := rows.Scan(&concertID, &p.Name, &role); err != nil {
			return fmt.Errorf("scanning performer: %w", err)
		}
		p.Role = concert.Role(role)
		if rec, ok := byID[concertID]; ok {
			rec.Performers = append(rec.Performers, p)
		}
	}
	return rows.Err()
}

func (s *ConcertStore) attachProgram(ctx context.Context, ids []int64, byID map[int64]*ConcertRecord) error {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT concert_id, composer, work, position
		FROM program_entries
		WHERE concert_id = ANY($1)
		ORDER BY concert_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("querying program entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var concertID int64
		var entry concert.ProgramEntry
		if err := rows.Scan(&concertID, &entry.Composer, &entry.Work, &entry.Position); err != nil {
			return fmt.Errorf("scanning program entry: %w", err)
		}
		if rec, ok := byID[concertID]; ok {
			rec.Program = append(rec.Program, entry)
		}
	}
	return rows.Err()
}
