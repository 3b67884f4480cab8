package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/eptexts/document"
	"github.com/pevans/eptexts/logger"
	"github.com/pevans/eptexts/normalizer"
	"github.com/pevans/eptexts/scraper"
)

// FeedReader reads the RSS or Atom feed of adopted texts. Feeds have no
// server-side filter or paging, so the whole feed is one page and the date
// range is applied to each item's publication date.
type FeedReader struct {
	cfg    scraper.FeedConfig
	opts   Options
	parser *gofeed.Parser
	log    logger.Logger
	rng    DateRange
	opened bool
	done   bool
}

// NewFeedReader creates a reader for the feed described by cfg.
func NewFeedReader(cfg scraper.FeedConfig, opts Options) *FeedReader {
	opts = opts.withDefaults()

	// gofeed detects and handles both RSS and Atom
	parser := gofeed.NewParser()
	parser.Client = opts.Client
	if opts.UserAgent != "" {
		parser.UserAgent = opts.UserAgent
	}

	return &FeedReader{
		cfg:    cfg,
		opts:   opts,
		parser: parser,
		log:    opts.Log.With(logger.String("reader", "feed")),
	}
}

// Open implements Reader.
func (r *FeedReader) Open(_ context.Context, filter Filter) error {
	rng, err := ParseFilter(filter)
	if err != nil {
		return err
	}
	r.rng = rng
	r.opened = true
	return nil
}

// NextPage implements Reader.
func (r *FeedReader) NextPage(ctx context.Context) ([]document.RawItem, bool, error) {
	if !r.opened {
		return nil, false, ErrNotOpened
	}
	if r.done {
		return nil, false, nil
	}
	r.done = true

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(r.cfg.URL, ctx)
	if err != nil {
		return nil, false, &RetrievalError{Page: 1, URL: r.cfg.URL, Err: fmt.Errorf("failed to parse feed: %w", err)}
	}

	items := make([]document.RawItem, 0, len(feed.Items))
	for i, entry := range feed.Items {
		if entry == nil {
			r.log.Warn("Skipping entry",
				logger.Error(&normalizer.EntryError{Page: 1, Index: i + 1, Err: fmt.Errorf("empty feed item")}))
			continue
		}

		published := feedItemDate(entry)
		if published != nil && !r.rng.Contains(*published) {
			continue
		}
		items = append(items, feedItemToRawItem(entry, published))
	}

	r.log.Info("Fetched feed",
		logger.String("title", feed.Title),
		logger.Int("items", len(items)))

	return items, false, nil
}

// feedItemDate returns the publication date, falling back to the update
// date. gofeed parses both RSS (RFC 822) and Atom (ISO 8601) dates.
func feedItemDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func feedItemToRawItem(item *gofeed.Item, published *time.Time) document.RawItem {
	raw := document.RawItem{
		Title: collapse(item.Title),
		Text:  collapse(strings.Join([]string{item.Title, item.Description, item.Link, item.GUID}, " ")),
	}

	if published != nil {
		raw.DateText = published.Format("2006-01-02")
	} else {
		raw.DateText = item.Published
	}

	if item.Link != "" {
		raw.Links = append(raw.Links, document.RawLink{Href: item.Link})
	}
	for _, link := range item.Links {
		if link != "" && link != item.Link {
			raw.Links = append(raw.Links, document.RawLink{Href: link})
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil {
			raw.Links = append(raw.Links, document.RawLink{Href: enc.URL, Text: enc.Type})
		}
	}

	return raw
}
