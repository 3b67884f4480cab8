package collector

import (
	"context"
	"time"

	"github.com/pevans/eptexts/config"
	"github.com/pevans/eptexts/document"
	"github.com/pevans/eptexts/logger"
	"github.com/pevans/eptexts/normalizer"
	"github.com/pevans/eptexts/sources"
)

// Run performs one complete scrape as described by cfg: it builds the
// reader for cfg.Mode and a normalizer for cfg's origin and source label,
// then collects every page.
func Run(ctx context.Context, cfg *config.Config, log logger.Logger) (*Result, error) {
	reader, err := sources.New(cfg, log)
	if err != nil {
		now := time.Now()
		return &Result{
			StartedAt:  now,
			FinishedAt: now,
			Records:    []document.Record{},
			Defaults:   map[string]int{},
			Err:        err,
		}, err
	}

	return Collect(ctx, reader, NewNormalizer(cfg), FilterFor(cfg), Options{
		MaxPages: cfg.MaxPages,
		Log:      log,
	})
}

// NewNormalizer builds the normalizer for cfg.
func NewNormalizer(cfg *config.Config) *normalizer.Normalizer {
	var opts []normalizer.Option
	if cfg.SourceLabel != "" {
		opts = append(opts, normalizer.WithSource(cfg.SourceLabel))
	}
	if cfg.Origin != "" {
		opts = append(opts, normalizer.WithOrigin(cfg.Origin))
	}
	return normalizer.New(opts...)
}

// FilterFor returns the date filter configured in cfg.
func FilterFor(cfg *config.Config) sources.Filter {
	return sources.Filter{StartDate: cfg.StartDate, EndDate: cfg.EndDate}
}
