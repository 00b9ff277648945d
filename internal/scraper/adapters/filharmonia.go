package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/internal/scraper"
	"github.com/concertradar-data/pkg/concert"
)

// Filharmonia scrapes filharmonia.pl, which uses stable selectors on both
// the calendar page and the concert detail pages. All of its concerts take
// place in Warsaw.
type Filharmonia struct {
	venue   *concert.Venue
	fetcher scraper.PageFetcher
	logger  logger.Logger
	now     func() time.Time
}

const (
	filharmoniaCity = "Warsaw"
	// Evening concerts dominate the schedule, used when no time is listed.
	defaultConcertHour   = 19
	defaultConcertMinute = 30
)

func NewFilharmonia(venue *concert.Venue, fetcher scraper.PageFetcher, log logger.Logger) *Filharmonia {
	return &Filharmonia{venue: venue, fetcher: fetcher, logger: log, now: time.Now}
}

func (f *Filharmonia) ID() string {
	return AdapterFilharmonia
}

func (f *Filharmonia) FetchListing(ctx context.Context, limit int) ([]concert.Stub, error) {
	doc, err := f.fetcher.Fetch(ctx, f.venue.URL)
	if err != nil {
		return nil, err
	}

	items := f.calendarItems(doc)
	f.logger.Debug("Found calendar items", "venue_id", f.venue.ID, "count", len(items))

	var stubs []concert.Stub
	for _, item := range items {
		if len(stubs) >= limit {
			break
		}

		title := strings.TrimSpace(item.Find("div.event-title").First().Text())
		if title == "" {
			title = strings.TrimSpace(item.Find("a.event-link").First().Text())
		}
		if title == "" {
			f.logger.Debug("Dropping calendar item without title", "venue_id", f.venue.ID)
			continue
		}

		dateText := strings.TrimSpace(item.Find("div.event-date div.inner").First().Text())
		if dateText == "" {
			dateText = strings.TrimSpace(item.Find("div.event-date").First().Text())
		}
		date := concert.ParseDayMonth(dateText, f.now())
		if date.IsZero() {
			f.logger.Debug("Dropping calendar item without parsable date",
				"venue_id", f.venue.ID, "title", title)
			continue
		}
		date = f.withListedTime(item, date)

		externalURL := f.venue.URL
		if href, ok := item.Find("a.event-link").First().Attr("href"); ok && href != "#" && !strings.HasPrefix(href, "javascript") {
			externalURL = resolveURL(f.venue.URL, href)
		}

		stubs = append(stubs, concert.Stub{Title: title, Date: date, ExternalURL: externalURL})
	}
	return stubs, nil
}

func (f *Filharmonia) FetchDetail(ctx context.Context, stub concert.Stub) (*concert.DetailPayload, error) {
	doc, err := f.fetcher.Fetch(ctx, stub.ExternalURL)
	if err != nil {
		return nil, err
	}

	payload := &concert.DetailPayload{City: filharmoniaCity}

	for _, selector := range []string{".title-in-sidebar", ".display-1", ".title-attr"} {
		if title := strings.TrimSpace(doc.Find(selector).First().Text()); title != "" {
			payload.Title = title
			break
		}
	}

	if dateText := strings.TrimSpace(doc.Find("div.event-date").First().Text()); dateText != "" {
		if date := concert.ParseDayMonth(dateText, f.now()); !date.IsZero() {
			timeText := doc.Find("div.day-time span.time").First().Text()
			if timeText == "" {
				timeText = doc.Find("div.day-time").First().Text()
			}
			date = concert.WithClockTime(
				time.Date(date.Year(), date.Month(), date.Day(), defaultConcertHour, defaultConcertMinute, 0, 0, date.Location()),
				timeText)
			payload.Date = date
		}
	}

	doc.Find("div.performers-wrapper").First().Find("p, li, span, div").Each(func(i int, sel *goquery.Selection) {
		line := strings.TrimSpace(sel.Text())
		if line == "" || sel.Children().Length() > 0 {
			return
		}
		payload.Performers = append(payload.Performers, performerFromLine(line))
	})

	doc.Find("div.event-meta-composer").First().Find("p, li, div").Each(func(i int, sel *goquery.Selection) {
		line := strings.TrimSpace(sel.Text())
		if len(line) < 5 || sel.Children().Length() > 0 {
			return
		}
		composer, work := splitProgramLine(line)
		payload.Program = append(payload.Program, concert.ProgramEntry{
			Composer: composer,
			Work:     work,
			Position: len(payload.Program),
		})
	})
	if len(payload.Program) == 0 {
		if text := strings.TrimSpace(doc.Find("div.event-meta-composer").First().Text()); text != "" {
			payload.Program = extractProgram(text)
		}
	}

	return payload, nil
}

func (f *Filharmonia) calendarItems(doc *goquery.Document) []*goquery.Selection {
	var items []*goquery.Selection

	doc.Find("article.item-calendar").Each(func(i int, sel *goquery.Selection) {
		items = append(items, sel)
	})
	if len(items) > 0 {
		return items
	}

	// Older page layouts carry the date element without the article wrapper.
	doc.Find("div.event-date").Each(func(i int, sel *goquery.Selection) {
		if parent := sel.Closest("article"); parent.Length() > 0 {
			items = append(items, parent)
		} else {
			items = append(items, sel.Parent())
		}
	})
	if len(items) > 0 {
		return items
	}

	doc.Find("a.event-link").Each(func(i int, sel *goquery.Selection) {
		if parent := sel.Closest("article"); parent.Length() > 0 {
			items = append(items, parent)
		}
	})
	return items
}

func (f *Filharmonia) withListedTime(item *goquery.Selection, date time.Time) time.Time {
	timeText := item.Find("div.day-time span.time").First().Text()
	if timeText == "" {
		timeText = item.Find("div.day-time div.time").First().Text()
	}
	if timeText == "" {
		timeText = item.Find("div.day-time").First().Text()
	}
	withDefault := time.Date(date.Year(), date.Month(), date.Day(), defaultConcertHour, defaultConcertMinute, 0, 0, date.Location())
	return concert.WithClockTime(withDefault, timeText)
}

// performerFromLine parses lines like "Anna Kowalska – fortepian" into a
// named performer with a normalized role.
func performerFromLine(line string) concert.Performer {
	for _, sep := range []string{" – ", " - ", ", ", ": "} {
		if idx := strings.LastIndex(line, sep); idx > 0 {
			name := strings.TrimSpace(line[:idx])
			role := RoleFor(line[idx+len(sep):])
			if name != "" && role != concert.RoleOther {
				return concert.Performer{Name: name, Role: role}
			}
		}
	}
	return concert.Performer{Name: line, Role: roleFromText(line)}
}

// splitProgramLine separates "Composer – Work" repertoire lines.
func splitProgramLine(line string) (composer, work string) {
	for _, sep := range []string{" – ", " - ", ": "} {
		if idx := strings.Index(line, sep); idx > 0 {
			return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+len(sep):])
		}
	}
	for _, known := range composers {
		if strings.HasPrefix(line, known) {
			work = strings.TrimSpace(strings.TrimPrefix(line, known))
			if work == "" {
				work = "Work"
			}
			return known, work
		}
	}
	return line, "Work"
}
