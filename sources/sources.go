// Package sources reads raw adopted-text entries page by page. Three
// readers share one contract: HTMLReader scrapes the rendered listing,
// APIReader queries the structured documents endpoint and FeedReader reads
// the RSS/Atom feed.
package sources

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pevans/eptexts/config"
	"github.com/pevans/eptexts/document"
	"github.com/pevans/eptexts/logger"
)

// Reader yields raw items one page at a time. A Reader is single-use: once
// NextPage reports no more pages, further calls return no items.
type Reader interface {
	// Open validates and applies the date filter. It must be called once
	// before NextPage.
	Open(ctx context.Context, filter Filter) error

	// NextPage fetches the next page of raw items and reports whether more
	// pages remain. Entries that cannot be read are logged and skipped; a
	// page that cannot be fetched returns a *RetrievalError.
	NextPage(ctx context.Context) ([]document.RawItem, bool, error)
}

// Filter is the user-supplied date range, as text.
type Filter struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// DateRange is a parsed Filter. Nil bounds are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if r.Start != nil && day.Before(*r.Start) {
		return false
	}
	if r.End != nil && day.After(*r.End) {
		return false
	}
	return true
}

var filterLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseFilter validates the filter dates. Empty dates leave the bound open.
func ParseFilter(filter Filter) (DateRange, error) {
	var rng DateRange

	start, err := parseFilterDate("start_date", filter.StartDate)
	if err != nil {
		return rng, err
	}
	end, err := parseFilterDate("end_date", filter.EndDate)
	if err != nil {
		return rng, err
	}

	if start != nil && end != nil && end.Before(*start) {
		return rng, &ConfigurationError{Field: "end_date", Value: filter.EndDate, Err: ErrInvertedRange}
	}

	rng.Start, rng.End = start, end
	return rng, nil
}

func parseFilterDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range filterLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, &ConfigurationError{Field: field, Value: value, Err: ErrInvalidDate}
}

// Options carries the transport settings shared by all readers.
type Options struct {
	// Client is used for HTTP requests; a default client is created when
	// nil.
	Client *http.Client
	// Timeout bounds each page request.
	Timeout   time.Duration
	UserAgent string
	Log       logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Timeout <= 0 {
		o.Timeout = config.DefaultTimeout
	}
	if o.Log == nil {
		o.Log = logger.NewNop()
	}
	return o
}

// New builds the reader selected by cfg.Mode. An invalid configuration is
// reported as a *ConfigurationError.
func New(cfg *config.Config, log logger.Logger) (Reader, error) {
	if err := cfg.Validate(); err != nil {
		var fieldErr *config.FieldError
		if errors.As(err, &fieldErr) {
			return nil, &ConfigurationError{Field: fieldErr.Field, Value: fieldErr.Value, Err: fieldErr.Err}
		}
		return nil, &ConfigurationError{Field: "config", Err: err}
	}

	opts := Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Log:       log,
	}

	switch cfg.Mode {
	case config.ModeAPI:
		return NewAPIReader(cfg.API, opts), nil
	case config.ModeFeed:
		return NewFeedReader(cfg.Feed, opts), nil
	default:
		return NewHTMLReader(cfg.HTML, opts), nil
	}
}

// collapse normalizes runs of whitespace to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
