package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/eptexts/document"
	"github.com/pevans/eptexts/logger"
	"github.com/pevans/eptexts/normalizer"
	"github.com/pevans/eptexts/scraper"
)

var errEmptyEntry = errors.New("entry has no text")

// HTMLReader scrapes the rendered adopted-texts listing. The date filter is
// sent as query parameters and pagination follows the next-page control.
// Missing optional page furniture (filter panel, pagination) degrades to a
// single unfiltered page instead of failing.
type HTMLReader struct {
	cfg  scraper.ListingConfig
	opts Options
	log  logger.Logger

	rng     DateRange
	nextURL string
	page    int
	opened  bool
	done    bool
}

// NewHTMLReader creates a reader for the listing described by cfg.
func NewHTMLReader(cfg scraper.ListingConfig, opts Options) *HTMLReader {
	opts = opts.withDefaults()
	return &HTMLReader{
		cfg:  cfg,
		opts: opts,
		log:  opts.Log.With(logger.String("reader", "html")),
	}
}

// Open implements Reader.
func (r *HTMLReader) Open(_ context.Context, filter Filter) error {
	rng, err := ParseFilter(filter)
	if err != nil {
		return err
	}

	first, err := url.Parse(r.cfg.URL)
	if err != nil {
		return &ConfigurationError{Field: "listing_url", Value: r.cfg.URL, Err: err}
	}

	r.rng = rng
	r.applyFilter(first)
	r.nextURL = first.String()
	r.opened = true
	return nil
}

// applyFilter adds the date filter parameters to u unless u already
// carries them. Next-page links often hold only the page number.
func (r *HTMLReader) applyFilter(u *url.URL) {
	query := u.Query()
	if r.rng.Start != nil && r.cfg.StartParam != "" && !query.Has(r.cfg.StartParam) {
		query.Set(r.cfg.StartParam, r.rng.Start.Format(r.dateFormat()))
	}
	if r.rng.End != nil && r.cfg.EndParam != "" && !query.Has(r.cfg.EndParam) {
		query.Set(r.cfg.EndParam, r.rng.End.Format(r.dateFormat()))
	}
	u.RawQuery = query.Encode()
}

func (r *HTMLReader) dateFormat() string {
	if r.cfg.DateFormat == "" {
		return "2006-01-02"
	}
	return r.cfg.DateFormat
}

func (r *HTMLReader) filtered() bool {
	return r.rng.Start != nil || r.rng.End != nil
}

// NextPage implements Reader.
func (r *HTMLReader) NextPage(ctx context.Context) ([]document.RawItem, bool, error) {
	if !r.opened {
		return nil, false, ErrNotOpened
	}
	if r.done {
		return nil, false, nil
	}

	r.page++
	pageURL := r.nextURL

	doc, err := r.fetch(ctx, pageURL)
	if err != nil {
		r.done = true
		return nil, false, &RetrievalError{Page: r.page, URL: pageURL, Err: err}
	}

	if r.page == 1 && r.filtered() && r.cfg.FilterSelector != "" &&
		doc.Find(r.cfg.FilterSelector).Length() == 0 {
		r.log.Warn("Filter panel not found; the listing may be unfiltered",
			logger.String("selector", r.cfg.FilterSelector))
	}

	container := doc.Selection
	if r.cfg.ContainerSelector != "" {
		container = doc.Find(r.cfg.ContainerSelector).First()
	}
	if container.Length() == 0 {
		r.log.Warn("Listing container not found; treating page as empty",
			logger.Int("page", r.page),
			logger.String("selector", r.cfg.ContainerSelector))
		r.done = true
		return nil, false, nil
	}

	entries := container.Find(r.cfg.EntrySelector)
	if r.cfg.PerPage > 0 && entries.Length() > r.cfg.PerPage {
		entries = entries.Slice(0, r.cfg.PerPage)
	}

	items := make([]document.RawItem, 0, entries.Length())
	entries.Each(func(i int, s *goquery.Selection) {
		item, err := r.readEntry(s)
		if err != nil {
			r.log.Warn("Skipping entry",
				logger.Error(&normalizer.EntryError{Page: r.page, Index: i + 1, Err: err}))
			return
		}
		items = append(items, item)
	})

	next, ok := r.findNext(doc, pageURL)
	if !ok {
		r.done = true
	} else {
		r.nextURL = next
	}

	r.log.Info("Fetched listing page",
		logger.Int("page", r.page),
		logger.Int("items", len(items)),
		logger.Bool("has_more", !r.done))

	return items, !r.done, nil
}

// fetch retrieves and parses one page, bounded by the configured timeout.
func (r *HTMLReader) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := r.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}

// readEntry extracts the raw fields of one listing entry.
func (r *HTMLReader) readEntry(s *goquery.Selection) (item document.RawItem, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("entry lookup failed: %v", p)
		}
	}()

	item.Text = collapse(s.Text())
	if item.Text == "" {
		return item, errEmptyEntry
	}

	if r.cfg.TitleSelector != "" {
		title := s.Find(r.cfg.TitleSelector).First()
		item.Title = collapse(title.Text())
		if item.Title == "" {
			item.Title = collapse(title.AttrOr("title", ""))
		}
	}
	if r.cfg.DateSelector != "" {
		item.DateText = collapse(s.Find(r.cfg.DateSelector).First().Text())
	}
	if r.cfg.IdentifierSelector != "" {
		item.Identifier = collapse(s.Find(r.cfg.IdentifierSelector).First().Text())
	}

	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		item.Links = append(item.Links, document.RawLink{
			Href: strings.TrimSpace(a.AttrOr("href", "")),
			Text: collapse(a.Text()),
		})
	})

	return item, nil
}

// findNext locates an enabled next-page control and returns the URL it
// leads to. A control without a usable href falls back to the page query
// parameter.
func (r *HTMLReader) findNext(doc *goquery.Document, current string) (string, bool) {
	if r.cfg.NextSelector == "" {
		return "", false
	}

	next := doc.Find(r.cfg.NextSelector).First()
	if next.Length() == 0 || isDisabled(next) {
		return "", false
	}

	base, err := url.Parse(current)
	if err != nil {
		return "", false
	}

	var target *url.URL
	href := strings.TrimSpace(next.AttrOr("href", ""))
	if href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
		ref, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		target = base.ResolveReference(ref)
	} else if r.cfg.PageParam != "" {
		copied := *base
		target = &copied
		query := target.Query()
		query.Set(r.cfg.PageParam, strconv.Itoa(r.page+1))
		target.RawQuery = query.Encode()
	} else {
		return "", false
	}

	r.applyFilter(target)

	// A control pointing back at the current page would loop forever
	if target.String() == current {
		return "", false
	}
	return target.String(), true
}

func isDisabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	if s.AttrOr("aria-disabled", "") == "true" {
		return true
	}
	return s.HasClass("disabled") || s.Parent().HasClass("disabled")
}
