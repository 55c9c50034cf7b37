// Package astro fetches and parses daily horoscope pages from the
// click108 site.
package astro

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const DefaultBaseURL = "http://astro.click108.com.tw"

const (
	titleSelector = "div.TODAY_CONTENT > h3"
	itemSelector  = "div.TODAY_CONTENT > p"
)

var (
	// ErrUpstreamStatus indicates the upstream site answered with a
	// non-success HTTP status.
	ErrUpstreamStatus = errors.New("upstream returned non-success status")
	// ErrMissingTitle indicates the expected heading was absent from the
	// fetched page.
	ErrMissingTitle = errors.New("horoscope title not found in page")
)

type Client struct {
	http    *http.Client
	baseURL *url.URL
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithClock overrides the clock used to stamp fetched entries.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: u,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch retrieves and parses the daily page for sign. A single failed
// attempt propagates immediately; there is no retry.
func (c *Client) Fetch(ctx context.Context, sign int) (Entry, error) {
	doc, err := c.document(ctx, sign)
	if err != nil {
		return Entry{}, err
	}

	title := doc.Find(titleSelector).First()
	if title.Length() == 0 {
		return Entry{}, fmt.Errorf("sign %d: %w", sign, ErrMissingTitle)
	}

	var items []string
	doc.Find(itemSelector).Each(func(_ int, s *goquery.Selection) {
		items = append(items, s.Text())
	})

	return NewEntry(sign, title.Text(), items, c.now()), nil
}

// FetchItems retrieves the daily page for sign and returns only the body
// paragraphs, for comparison against a cached entry.
func (c *Client) FetchItems(ctx context.Context, sign int) ([]string, error) {
	doc, err := c.document(ctx, sign)
	if err != nil {
		return nil, err
	}

	var items []string
	doc.Find(itemSelector).Each(func(_ int, s *goquery.Selection) {
		items = append(items, s.Text())
	})
	return items, nil
}

func (c *Client) document(ctx context.Context, sign int) (*goquery.Document, error) {
	if !ValidSign(sign) {
		return nil, fmt.Errorf("sign index %d out of range", sign)
	}

	u := fmt.Sprintf("%s/daily_%d.php?iAstro=%d", c.baseURL, sign, sign)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for sign %d: %w", sign, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sign %d: %w", sign, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sign %d: %w: %d", sign, ErrUpstreamStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page for sign %d: %w", sign, err)
	}
	return doc, nil
}
