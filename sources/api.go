package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/pevans/eptexts/document"
	"github.com/pevans/eptexts/logger"
	"github.com/pevans/eptexts/normalizer"
	"github.com/pevans/eptexts/scraper"
)

// APIReader pages through the structured documents endpoint by offset.
type APIReader struct {
	cfg    scraper.APIConfig
	opts   Options
	client *resty.Client
	log    logger.Logger
	rng    DateRange
	offset int
	page   int
	opened bool
	done   bool
}

// NewAPIReader creates a reader for the endpoint described by cfg.
func NewAPIReader(cfg scraper.APIConfig, opts Options) *APIReader {
	opts = opts.withDefaults()
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}

	client := resty.NewWithClient(opts.Client)
	if cfg.Accept != "" {
		client.SetHeader("Accept", cfg.Accept)
	} else {
		client.SetHeader("Accept", "application/json")
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &APIReader{
		cfg:    cfg,
		opts:   opts,
		client: client,
		log:    opts.Log.With(logger.String("reader", "api")),
	}
}

// apiResponse is one page of the documents endpoint. Items are kept raw so
// a malformed item only costs that item.
type apiResponse struct {
	Data  []json.RawMessage `json:"data"`
	Total *int              `json:"total"`
	Count *int              `json:"count"`
	Meta  struct {
		Total *int `json:"total"`
	} `json:"meta"`
}

// total returns the total item count announced by the endpoint, or -1.
// Some endpoints report the size of the current page as count, so count is
// trusted only when it reaches beyond offset, the number of items read so
// far.
func (r apiResponse) total(offset int) int {
	for _, n := range []*int{r.Total, r.Meta.Total} {
		if n != nil {
			return *n
		}
	}
	if r.Count != nil && *r.Count > offset {
		return *r.Count
	}
	return -1
}

type apiDocument struct {
	Title         langString         `json:"title"`
	Label         string             `json:"label"`
	Date          string             `json:"date"`
	SittingDate   string             `json:"sittingDate"`
	Identifier    string             `json:"identifier"`
	DocID         string             `json:"docId"`
	Manifestation []apiManifestation `json:"manifestation"`
}

type apiManifestation struct {
	MediaType string `json:"media_type"`
	URL       string `json:"url"`
}

// langString decodes either a plain string or a language map such as
// {"en": "...", "fr": "..."}.
type langString map[string]string

func (l *langString) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*l = langString{"": plain}
		return nil
	}

	var byLang map[string]string
	if err := json.Unmarshal(data, &byLang); err != nil {
		return fmt.Errorf("title is neither a string nor a language map: %w", err)
	}
	*l = byLang
	return nil
}

// pick returns the value for lang, then English, then the untagged value,
// then the first language in sorted order.
func (l langString) pick(lang string) string {
	for _, key := range []string{lang, "en", ""} {
		if v, ok := l[key]; ok && v != "" {
			return v
		}
	}

	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

// Open implements Reader.
func (r *APIReader) Open(_ context.Context, filter Filter) error {
	rng, err := ParseFilter(filter)
	if err != nil {
		return err
	}
	r.rng = rng
	r.opened = true
	return nil
}

func (r *APIReader) queryParams() map[string]string {
	params := map[string]string{
		"limit":  strconv.Itoa(r.cfg.Limit),
		"offset": strconv.Itoa(r.offset),
	}
	if r.cfg.WorkType != "" {
		params["work-type"] = r.cfg.WorkType
	}
	if r.cfg.Format != "" {
		params["format"] = r.cfg.Format
	}
	if r.rng.Start != nil {
		params["year"] = strconv.Itoa(r.rng.Start.Year())
		params["sitting-date-start"] = r.rng.Start.Format("2006-01-02")
	}
	if r.rng.End != nil {
		params["sitting-date-end"] = r.rng.End.Format("2006-01-02")
	}
	return params
}

// NextPage implements Reader.
func (r *APIReader) NextPage(ctx context.Context) ([]document.RawItem, bool, error) {
	if !r.opened {
		return nil, false, ErrNotOpened
	}
	if r.done {
		return nil, false, nil
	}

	r.page++

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(r.queryParams()).
		Get(r.cfg.Endpoint)
	if err != nil {
		r.done = true
		return nil, false, &RetrievalError{Page: r.page, URL: r.cfg.Endpoint, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		r.done = true
		return nil, false, &RetrievalError{
			Page: r.page,
			URL:  resp.Request.URL,
			Err:  fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status()),
		}
	}

	var body apiResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		r.done = true
		return nil, false, &RetrievalError{
			Page: r.page,
			URL:  resp.Request.URL,
			Err:  fmt.Errorf("failed to decode response: %w", err),
		}
	}

	items := make([]document.RawItem, 0, len(body.Data))
	for i, raw := range body.Data {
		var doc apiDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			r.log.Warn("Skipping entry",
				logger.Error(&normalizer.EntryError{Page: r.page, Index: i + 1, Err: err}))
			continue
		}
		items = append(items, r.toRawItem(doc))
	}

	r.offset += len(body.Data)
	switch total := body.total(r.offset); {
	case len(body.Data) == 0:
		r.done = true
	case total >= 0:
		r.done = r.offset >= total
	default:
		r.done = len(body.Data) < r.cfg.Limit
	}

	r.log.Info("Fetched API page",
		logger.Int("page", r.page),
		logger.Int("items", len(items)),
		logger.Int("offset", r.offset),
		logger.Bool("has_more", !r.done))

	return items, !r.done, nil
}

func (r *APIReader) toRawItem(doc apiDocument) document.RawItem {
	title := doc.Title.pick(r.cfg.Language)
	if title == "" {
		title = doc.Label
	}

	identifier := doc.Identifier
	if identifier == "" {
		identifier = doc.DocID
	}

	date := doc.Date
	if date == "" {
		date = doc.SittingDate
	}

	item := document.RawItem{
		Title:      collapse(title),
		Text:       identifier,
		Identifier: identifier,
		DateText:   date,
	}
	for _, m := range doc.Manifestation {
		item.Links = append(item.Links, document.RawLink{Href: m.URL, Text: m.MediaType})
	}
	return item
}
