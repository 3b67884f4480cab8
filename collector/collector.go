// Package collector drives a sources.Reader page by page, normalizes each
// raw item and accumulates the records of one run.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/eptexts/document"
	"github.com/pevans/eptexts/logger"
	"github.com/pevans/eptexts/normalizer"
	"github.com/pevans/eptexts/sources"
)

// Result is the outcome of one run. It is returned even when the run
// fails, so that records gathered before the failure can still be written.
type Result struct {
	RunID      uuid.UUID                `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Pages      int                      `json:"pages"`
	Records    []document.Record        `json:"records"`
	Skipped    []*normalizer.EntryError `json:"-"`
	Defaults   map[string]int           `json:"defaults"`
	Err        error                    `json:"-"`
}

// Options configures a run.
type Options struct {
	// MaxPages stops the run after this many pages; 0 means no limit.
	MaxPages int
	Log      logger.Logger
}

// Collect opens reader with filter and reads it to exhaustion, normalizing
// every item. Entry-level failures are recorded in Result.Skipped and never
// stop the run. A configuration error is returned before any retrieval; a
// retrieval error stops the run and is returned alongside the records
// collected so far. The returned Result is never nil.
func Collect(
	ctx context.Context,
	reader sources.Reader,
	norm *normalizer.Normalizer,
	filter sources.Filter,
	opts Options,
) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	result := &Result{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Records:   []document.Record{},
		Defaults:  map[string]int{},
	}
	log = log.With(logger.String("run_id", result.RunID.String()))

	finish := func(err error) (*Result, error) {
		result.FinishedAt = time.Now()
		result.Err = err
		return result, err
	}

	if err := reader.Open(ctx, filter); err != nil {
		log.Error("Failed to open reader", logger.Error(err))
		return finish(err)
	}

	for {
		if opts.MaxPages > 0 && result.Pages >= opts.MaxPages {
			log.Info("Page limit reached", logger.Int("max_pages", opts.MaxPages))
			break
		}

		items, hasMore, err := reader.NextPage(ctx)
		if err != nil {
			log.Error("Retrieval failed; keeping partial results",
				logger.Error(err),
				logger.Int("records", len(result.Records)))
			return finish(err)
		}
		result.Pages++

		for i, item := range items {
			rec, defaults, err := norm.Normalize(item)
			for _, d := range defaults {
				result.Defaults[d.Field]++
				log.Debug("Field default applied",
					logger.Int("page", result.Pages),
					logger.Int("entry", i+1),
					logger.String("field", d.Field),
					logger.String("reason", d.Reason))
			}
			if err != nil {
				entryErr := &normalizer.EntryError{Page: result.Pages, Index: i + 1, Err: err}
				result.Skipped = append(result.Skipped, entryErr)
				log.Warn("Skipping entry", logger.Error(entryErr))
				continue
			}
			result.Records = append(result.Records, rec)
		}

		if !hasMore {
			break
		}
	}

	log.Info("Run complete",
		logger.Int("pages", result.Pages),
		logger.Int("records", len(result.Records)),
		logger.Int("skipped", len(result.Skipped)))

	return finish(nil)
}

// IsConfigurationError reports whether err stems from invalid filter input.
func IsConfigurationError(err error) bool {
	var cfgErr *sources.ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsRetrievalError reports whether err stems from a failed page fetch.
func IsRetrievalError(err error) bool {
	var retrievalErr *sources.RetrievalError
	return errors.As(err, &retrievalErr)
}
