package document

// Record is a normalized adopted-text document entry. Records are built once
// by the normalizer and never mutated afterwards.
type Record struct {
	Source                 string `json:"source"`
	InterInstitutionalCode string `json:"inter_institutional_code"`
	DocumentReference      string `json:"document_reference"`
	Title                  string `json:"title"`
	LegalDocumentType      string `json:"legal_document_type"`
	PDFLink                string `json:"pdf_link"`
	DocxLink               string `json:"docx_link"`
	PublishedDate          string `json:"published_date"`
	FirstParsedDate        string `json:"first_parsed_date"`
}

// RawLink is a hyperlink found inside a raw item, as it appeared on the page
// (or in the API manifestation list).
type RawLink struct {
	Href string
	Text string
}

// RawItem holds the unnormalized fields of one listing entry. Which fields
// are populated depends on the reader that produced it.
type RawItem struct {
	// Title is the display name as scraped, possibly with a trailing
	// inter-institutional code.
	Title string

	// Text is the secondary text blob: the full entry text for scraped
	// pages, the identifier for API objects.
	Text string

	// Identifier is a raw document identifier, used verbatim when no
	// reference pattern can be found in Text.
	Identifier string

	// DateText is a raw date string when the source exposes one directly.
	// When empty, the date is searched for in Text.
	DateText string

	Links []RawLink
}
