package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pevans/eptexts/logger"
	"github.com/pevans/eptexts/normalizer"
	"github.com/pevans/eptexts/scraper"
)

// Retrieval modes.
const (
	ModeHTML = "html"
	ModeAPI  = "api"
	ModeFeed = "feed"
)

// Compiled-in defaults.
const (
	DefaultStartDate  = "2025-07-01"
	DefaultListingURL = "https://www.europarl.europa.eu/plenary/en/texts-adopted.html"
	DefaultAPIURL     = "https://data.europarl.europa.eu/api/v2/documents"
	DefaultFeedURL    = "https://www.europarl.europa.eu/rss/doc/texts-adopted/en.xml"
	DefaultOutput     = "ep_documents.json"
	DefaultTimeout    = 30 * time.Second
	DefaultServeAddr  = ":8080"
)

var (
	ErrUnknownMode      = errors.New("mode must be html, api, or feed")
	ErrMissingURL       = errors.New("source URL is empty")
	ErrInvalidTimeout   = errors.New("timeout must be positive")
	ErrNegativeMaxPages = errors.New("max_pages must not be negative")
)

// FieldError names the configuration key that failed validation.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Config is the complete scraper configuration.
type Config struct {
	Mode         string        `yaml:"mode"`
	Origin       string        `yaml:"origin"`
	SourceLabel  string        `yaml:"source_label"`
	StartDate    string        `yaml:"start_date"`
	EndDate      string        `yaml:"end_date"`
	Output       string        `yaml:"output"`
	SQLiteOutput string        `yaml:"sqlite_output"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxPages     int           `yaml:"max_pages"` // 0 means no limit
	UserAgent    string        `yaml:"user_agent"`

	Log   logger.Config         `yaml:"log"`
	HTML  scraper.ListingConfig `yaml:"html"`
	API   scraper.APIConfig     `yaml:"api"`
	Feed  scraper.FeedConfig    `yaml:"feed"`
	Serve ServeConfig           `yaml:"serve"`
}

// ServeConfig configures the HTTP API server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration targeting the plenary
// adopted-texts listing.
func Default() *Config {
	return &Config{
		Mode:        ModeHTML,
		Origin:      normalizer.DefaultOrigin,
		SourceLabel: normalizer.DefaultSource,
		StartDate:   DefaultStartDate,
		Output:      DefaultOutput,
		Timeout:     DefaultTimeout,
		UserAgent:   "eptexts/1.0 (adopted texts collector)",
		Log:         logger.Config{Level: "info"},
		HTML:        scraper.NewListingConfig(DefaultListingURL),
		API:         scraper.NewAPIConfig(DefaultAPIURL),
		Feed:        scraper.FeedConfig{URL: DefaultFeedURL},
		Serve:       ServeConfig{Addr: DefaultServeAddr},
	}
}

// Validate checks the mode and that the selected source has a URL. Failures
// are returned as *FieldError.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeHTML:
		if c.HTML.URL == "" {
			return &FieldError{Field: "html.listing_url", Err: ErrMissingURL}
		}
	case ModeAPI:
		if c.API.Endpoint == "" {
			return &FieldError{Field: "api.endpoint", Err: ErrMissingURL}
		}
	case ModeFeed:
		if c.Feed.URL == "" {
			return &FieldError{Field: "feed.url", Err: ErrMissingURL}
		}
	default:
		return &FieldError{Field: "mode", Value: c.Mode, Err: ErrUnknownMode}
	}

	if c.Timeout <= 0 {
		return &FieldError{Field: "timeout", Value: c.Timeout.String(), Err: ErrInvalidTimeout}
	}
	if c.MaxPages < 0 {
		return &FieldError{Field: "max_pages", Value: strconv.Itoa(c.MaxPages), Err: ErrNegativeMaxPages}
	}
	return nil
}
