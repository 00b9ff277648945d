package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/concertradar-data/internal/common/logger"
)

// HTTPFetcher fetches venue pages over HTTP. Every request carries the
// configured timeout; an expired or failed request surfaces as a FetchError
// for that single page.
type HTTPFetcher struct {
	client *resty.Client
	logger logger.Logger
}

func NewHTTPFetcher(timeout time.Duration, userAgent string, log logger.Logger) *HTTPFetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)

	return &HTTPFetcher{
		client: client,
		logger: log,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.logger.Debug("Fetching page", "url", url)

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		f.logger.Error("Failed to fetch page", "url", url, "error", err)
		return nil, &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		f.logger.Error("Page returned error status", "url", url, "status_code", resp.StatusCode())
		return nil, &FetchError{URL: url, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode())}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("reading document: %w", err)}
	}
	return doc, nil
}
