// Package normalizer turns raw listing entries into document records. Each
// field is recovered by an independent rule; a rule that cannot recover its
// field falls back to a default and reports a FieldDefault instead of
// failing the record.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/pevans/eptexts/document"
)

const (
	// DateLayout is the display format of published and first-parsed dates.
	DateLayout = "02-Jan-2006"

	// DefaultSource labels records from the plenary adopted-texts listing.
	DefaultSource = "Plenary"

	// DefaultOrigin is the site origin relative links are resolved against.
	DefaultOrigin = "https://www.europarl.europa.eu"

	// DefaultLegalDocumentType is used when no type phrase is found in the
	// title.
	DefaultLegalDocumentType = "Adopted text"
)

// Normalizer maps raw items to records. It holds no per-item state, so a
// single Normalizer can be reused for a whole run.
type Normalizer struct {
	source      string
	origin      string
	defaultType string
	now         func() time.Time
	rules       []Rule
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSource sets the fixed source label written to every record.
func WithSource(source string) Option {
	return func(n *Normalizer) { n.source = source }
}

// WithOrigin sets the origin used to resolve relative links.
func WithOrigin(origin string) Option {
	return func(n *Normalizer) { n.origin = strings.TrimRight(origin, "/") }
}

// WithClock replaces the clock used for first_parsed_date.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithDefaultType sets the legal document type used when none is detected.
func WithDefaultType(label string) Option {
	return func(n *Normalizer) { n.defaultType = label }
}

// New creates a Normalizer with the default rule table.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		source:      DefaultSource,
		origin:      DefaultOrigin,
		defaultType: DefaultLegalDocumentType,
		now:         time.Now,
		rules:       Rules(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds a record from one raw item. The returned defaults list
// every field that fell back to its default value. The error is non-nil
// only when a required field (the title) could not be recovered, in which
// case the record must be discarded.
func (n *Normalizer) Normalize(item document.RawItem) (document.Record, []FieldDefault, error) {
	rec := document.Record{
		Source:          n.source,
		FirstParsedDate: n.now().UTC().Format(DateLayout),
	}

	var defaults []FieldDefault
	for _, rule := range n.rules {
		reason := n.apply(rule, item, &rec)
		if reason == "" {
			continue
		}
		if rule.Required {
			return document.Record{}, defaults, fmt.Errorf("%w: %s", ErrNoTitle, reason)
		}
		defaults = append(defaults, FieldDefault{Field: rule.Field, Reason: reason})
	}

	return rec, defaults, nil
}

// apply runs one rule and returns an empty string on success or the reason
// the field fell back. A panicking rule degrades to its fallback like any
// other failure.
func (n *Normalizer) apply(rule Rule, item document.RawItem, rec *document.Record) string {
	var reason string
	if msg := safely(func() { reason = rule.Extract(n, item, rec) }); msg != "" {
		reason = "extraction failed: " + msg
	}
	if reason == "" {
		return ""
	}

	if rule.Fallback != nil {
		safely(func() { rule.Fallback(n, item, rec) })
	}
	return reason
}

func safely(fn func()) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprint(r)
		}
	}()
	fn()
	return ""
}
