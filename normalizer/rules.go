package normalizer

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pevans/eptexts/document"
)

// Field names as they appear in the JSON output, used in FieldDefault
// diagnostics.
const (
	FieldInterInstitutionalCode = "inter_institutional_code"
	FieldDocumentReference      = "document_reference"
	FieldLegalDocumentType      = "legal_document_type"
	FieldTitle                  = "title"
	FieldPublishedDate          = "published_date"
	FieldPDFLink                = "pdf_link"
	FieldDocxLink               = "docx_link"
)

const codeExpr = `\d{4}/\d{4}\([A-Z]+\)`

var (
	codePattern         = regexp.MustCompile(codeExpr)
	trailingCodePattern = regexp.MustCompile(`\s*(?:\(\s*` + codeExpr + `\s*\)|` + codeExpr + `)\s*$`)
	anyCodePattern      = regexp.MustCompile(`\s*(?:\(\s*` + codeExpr + `\s*\)|` + codeExpr + `)`)
	referencePattern    = regexp.MustCompile(`P\d+_TA\(\d{4}\)\d+`)
	typeOfPattern       = regexp.MustCompile(`(?i)European Parliament\s+(\w+(?:\s+\w+)*?)\s+of\s+\d`)
	typeAdoptedPattern  = regexp.MustCompile(`(?i)European Parliament\s+(\w+(?:\s+\w+)*?)\s+adopted by`)
	textualDatePattern  = regexp.MustCompile(`\b\d{2}-[A-Za-z]{3}-\d{4}\b`)
	isoDatePattern      = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}`)
	schemePattern       = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// Rule recovers one record field from a raw item. Extract returns an empty
// string when the field was recovered, or the reason it was not; in the
// latter case Fallback (if any) writes the field's default.
type Rule struct {
	Field    string
	Required bool
	Extract  func(n *Normalizer, item document.RawItem, rec *document.Record) string
	Fallback func(n *Normalizer, item document.RawItem, rec *document.Record)
}

// Rules returns the ordered field recovery table.
func Rules() []Rule {
	return []Rule{
		{
			Field: FieldInterInstitutionalCode,
			Extract: func(_ *Normalizer, item document.RawItem, rec *document.Record) string {
				rec.InterInstitutionalCode = ExtractInterInstitutionalCode(item.Title)
				if rec.InterInstitutionalCode == "" {
					return "no code in title"
				}
				return ""
			},
		},
		{
			Field: FieldDocumentReference,
			Extract: func(_ *Normalizer, item document.RawItem, rec *document.Record) string {
				rec.DocumentReference = referencePattern.FindString(item.Text)
				if rec.DocumentReference == "" {
					return "no reference in text"
				}
				return ""
			},
			Fallback: func(_ *Normalizer, item document.RawItem, rec *document.Record) {
				if strings.TrimSpace(item.Identifier) != "" {
					rec.DocumentReference = item.Identifier
				}
			},
		},
		{
			Field: FieldLegalDocumentType,
			Extract: func(_ *Normalizer, item document.RawItem, rec *document.Record) string {
				rec.LegalDocumentType = ExtractLegalDocumentType(item.Title)
				if rec.LegalDocumentType == "" {
					return "no type phrase in title"
				}
				return ""
			},
			Fallback: func(n *Normalizer, _ document.RawItem, rec *document.Record) {
				rec.LegalDocumentType = n.defaultType
			},
		},
		{
			Field:    FieldTitle,
			Required: true,
			Extract: func(_ *Normalizer, item document.RawItem, rec *document.Record) string {
				rec.Title = CleanTitle(item.Title)
				if rec.Title == "" {
					return "empty title"
				}
				return ""
			},
		},
		{
			Field: FieldPublishedDate,
			Extract: func(_ *Normalizer, item document.RawItem, rec *document.Record) string {
				raw := findDate(dateSource(item))
				if raw == "" {
					return "no date found"
				}
				formatted, ok := FormatDate(raw)
				if !ok {
					return "unparseable date " + raw
				}
				rec.PublishedDate = formatted
				return ""
			},
			Fallback: func(_ *Normalizer, item document.RawItem, rec *document.Record) {
				if raw := findDate(dateSource(item)); raw != "" {
					rec.PublishedDate = raw
					return
				}
				rec.PublishedDate = strings.TrimSpace(item.DateText)
			},
		},
		{
			Field: FieldPDFLink,
			Extract: func(n *Normalizer, item document.RawItem, rec *document.Record) string {
				rec.PDFLink = n.firstLink(item.Links, isPDFLink)
				if rec.PDFLink == "" {
					return "no pdf link"
				}
				return ""
			},
		},
		{
			Field: FieldDocxLink,
			Extract: func(n *Normalizer, item document.RawItem, rec *document.Record) string {
				rec.DocxLink = n.firstLink(item.Links, isDocxLink)
				if rec.DocxLink == "" {
					return "no docx link"
				}
				return ""
			},
		},
	}
}

// ExtractInterInstitutionalCode returns the first YYYY/NNNN(TYPE) code in
// the title, or an empty string.
func ExtractInterInstitutionalCode(title string) string {
	return codePattern.FindString(title)
}

// ExtractLegalDocumentType returns the phrase between "European Parliament"
// and "of <date>" (or "adopted by"), or an empty string.
func ExtractLegalDocumentType(title string) string {
	if m := typeOfPattern.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := typeAdoptedPattern.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// CleanTitle collapses whitespace and removes inter-institutional codes
// (with their enclosing parentheses) so the code is never repeated in the
// display title.
//
// Separator punctuation left dangling by a removed code is trimmed; a title
// without a code keeps its punctuation.
func CleanTitle(raw string) string {
	title := strings.Join(strings.Fields(raw), " ")
	if !codePattern.MatchString(title) {
		return title
	}
	title = trailingCodePattern.ReplaceAllString(title, "")
	title = anyCodePattern.ReplaceAllString(title, "")
	title = strings.Join(strings.Fields(title), " ")
	return strings.TrimRight(title, " -–:,;")
}

// FormatDate reformats a DD-Mon-YYYY or YYYY-MM-DD date to DD-Mon-YYYY. It
// returns the input and false when the date does not parse.
func FormatDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return raw, false
}

func dateSource(item document.RawItem) string {
	if strings.TrimSpace(item.DateText) != "" {
		return item.DateText
	}
	return item.Text
}

// findDate returns the first textual date, or failing that the first ISO
// date, found in s.
func findDate(s string) string {
	if m := textualDatePattern.FindString(s); m != "" {
		return m
	}
	return isoDatePattern.FindString(s)
}

// ResolveLink makes href absolute against origin. Relative references are
// appended to the origin; only http and https results are accepted.
func ResolveLink(origin, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	origin = strings.TrimRight(origin, "/")
	switch {
	case strings.HasPrefix(href, "//"):
		scheme := "https"
		if u, err := url.Parse(origin); err == nil && u.Scheme != "" {
			scheme = u.Scheme
		}
		href = scheme + ":" + href
	case !schemePattern.MatchString(href):
		if !strings.HasPrefix(href, "/") {
			href = "/" + href
		}
		href = origin + href
	}

	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return href, true
}

func isPDFLink(link document.RawLink) bool {
	href := strings.ToLower(link.Href)
	text := strings.ToLower(strings.TrimSpace(link.Text))
	return strings.Contains(href, "pdf") || strings.Contains(text, "pdf")
}

// isDocxLink matches Word links. PDF links are excluded first so that a
// "document.pdf" href is never taken for a Word file.
func isDocxLink(link document.RawLink) bool {
	if isPDFLink(link) {
		return false
	}
	href := strings.ToLower(link.Href)
	text := strings.ToLower(strings.TrimSpace(link.Text))
	if text == "w" {
		return true
	}
	for _, s := range []string{href, text} {
		if strings.Contains(s, "doc") || strings.Contains(s, "word") {
			return true
		}
	}
	return false
}

// firstLink returns the first resolvable link accepted by match.
func (n *Normalizer) firstLink(links []document.RawLink, match func(document.RawLink) bool) string {
	for _, link := range links {
		if !match(link) {
			continue
		}
		if resolved, ok := ResolveLink(n.origin, link.Href); ok {
			return resolved
		}
	}
	return ""
}
