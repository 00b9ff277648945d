package adapters

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/internal/scraper"
	"github.com/concertradar-data/pkg/concert"
)

// listingTerms mark container classes that usually hold concert listings.
var listingTerms = []string{
	"concert", "event", "performance", "program", "repertoire",
	"season", "schedule", "calendar", "listing", "music",
}

// excludeTerms mark page chrome that only looks like a listing.
var excludeTerms = []string{
	"nav", "menu", "header", "footer", "sidebar", "breadcrumb",
	"search", "filter", "pagination", "social", "share",
}

var navigationNoise = []string{
	"home", "about", "contact", "login", "register", "search",
	"subscribe", "newsletter", "privacy", "terms", "cookie",
}

var genericTitleNoise = []string{
	"digital concert hall", "calendar", "subscriptions", "vouchers",
	"ticket information", "season highlights", "tours", "cinema",
	"radio", "tv", "home", "about", "contact",
}

// Generic scrapes venue sites without a dedicated adapter by pattern
// matching on common concert listing markup.
type Generic struct {
	venue   *concert.Venue
	fetcher scraper.PageFetcher
	logger  logger.Logger
}

func NewGeneric(venue *concert.Venue, fetcher scraper.PageFetcher, log logger.Logger) *Generic {
	return &Generic{venue: venue, fetcher: fetcher, logger: log}
}

func (g *Generic) ID() string {
	return AdapterGeneric
}

func (g *Generic) FetchListing(ctx context.Context, limit int) ([]concert.Stub, error) {
	doc, err := g.fetcher.Fetch(ctx, g.venue.URL)
	if err != nil {
		return nil, err
	}

	elements := g.candidateElements(doc)
	g.logger.Debug("Found candidate listing elements", "venue_id", g.venue.ID, "count", len(elements))

	var stubs []concert.Stub
	seenText := make(map[string]struct{})
	seenKey := make(map[string]struct{})
	for _, sel := range elements {
		if len(stubs) >= limit {
			break
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) < 20 || hasNavigationNoise(text) {
			continue
		}
		if _, dup := seenText[text]; dup {
			continue
		}
		seenText[text] = struct{}{}

		stub, ok := g.stubFromElement(sel, text)
		if !ok {
			continue
		}
		key := concert.DedupKey(stub.Title, stub.Date, g.venue.ID)
		if _, dup := seenKey[key]; dup {
			continue
		}
		seenKey[key] = struct{}{}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}

// stubFromElement recovers a stub's identity from one listing element. A
// missing title or date drops the element, logged but never fatal.
func (g *Generic) stubFromElement(sel *goquery.Selection, text string) (concert.Stub, bool) {
	title := g.findTitle(sel)
	if title == "" || len(title) < 10 || isGenericTitle(title) {
		g.logger.Debug("Dropping listing element without usable title", "venue_id", g.venue.ID)
		return concert.Stub{}, false
	}

	dateText := concert.ExtractDateText(text)
	date := concert.ParseDate(dateText)
	if date.IsZero() {
		g.logger.Debug("Dropping listing element without parsable date",
			"venue_id", g.venue.ID, "title", title)
		return concert.Stub{}, false
	}

	externalURL := g.venue.URL
	if href, ok := sel.Find("a").First().Attr("href"); ok {
		externalURL = resolveURL(g.venue.URL, href)
	}

	return concert.Stub{Title: title, Date: date, ExternalURL: externalURL}, true
}

func (g *Generic) FetchDetail(ctx context.Context, stub concert.Stub) (*concert.DetailPayload, error) {
	doc, err := g.fetcher.Fetch(ctx, stub.ExternalURL)
	if err != nil {
		return nil, err
	}

	text := doc.Find("body").Text()
	payload := &concert.DetailPayload{
		Performers: extractPerformers(text),
		Program:    extractProgram(text),
	}
	return payload, nil
}

// candidateElements gathers page elements that plausibly describe one
// concert each, trying class keywords first and date patterns as fallback.
func (g *Generic) candidateElements(doc *goquery.Document) []*goquery.Selection {
	var elements []*goquery.Selection

	doc.Find("div, article, section, li").Each(func(i int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		lower := strings.ToLower(class)
		if lower == "" || !containsAny(lower, listingTerms) || containsAny(lower, excludeTerms) {
			return
		}
		elements = append(elements, sel)
	})

	if len(elements) > 0 {
		return elements
	}

	// No class-matched containers, fall back to headings mentioning
	// classical keywords and take their parents.
	doc.Find("h1, h2, h3, h4").Each(func(i int, sel *goquery.Selection) {
		lower := strings.ToLower(sel.Text())
		if containsAny(lower, []string{"concert", "symphony", "orchestra", "philharmonic", "recital", "chamber", "quartet", "concerto"}) {
			elements = append(elements, sel.Parent())
		}
	})
	if len(elements) > 0 {
		return elements
	}

	// Last resort: anything with a date-looking string in it.
	doc.Find("div, li, tr").Each(func(i int, sel *goquery.Selection) {
		if sel.Children().Length() > 8 {
			return
		}
		if concert.ExtractDateText(sel.Text()) != "" {
			elements = append(elements, sel)
		}
	})
	return elements
}

func (g *Generic) findTitle(sel *goquery.Selection) string {
	title := ""
	sel.Find("h1, h2, h3, h4, h5, b, strong, span, div").EachWithBreak(func(i int, t *goquery.Selection) bool {
		class, _ := t.Attr("class")
		if containsAny(strings.ToLower(class), []string{"title", "event", "name", "concert", "heading"}) {
			title = strings.TrimSpace(t.Text())
			return false
		}
		return true
	})
	if title == "" {
		title = strings.TrimSpace(sel.Find("h1, h2, h3, h4, h5, b, strong").First().Text())
	}
	return title
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func hasNavigationNoise(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range navigationNoise {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func isGenericTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, noise := range genericTitleNoise {
		if strings.Contains(lower, noise) {
			return true
		}
	}
	return false
}
