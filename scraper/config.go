package scraper

// ListingConfig defines how to read adopted-text entries from a rendered
// listing page. Selectors vary by site revision, so they live in
// configuration rather than code.
type ListingConfig struct {
	URL                string `yaml:"listing_url" json:"listing_url"`
	ContainerSelector  string `yaml:"container_selector" json:"container_selector"`
	EntrySelector      string `yaml:"entry_selector" json:"entry_selector"`
	TitleSelector      string `yaml:"title_selector" json:"title_selector"`
	DateSelector       string `yaml:"date_selector,omitempty" json:"date_selector,omitempty"`
	IdentifierSelector string `yaml:"identifier_selector,omitempty" json:"identifier_selector,omitempty"`
	NextSelector       string `yaml:"next_selector,omitempty" json:"next_selector,omitempty"`
	FilterSelector     string `yaml:"filter_selector,omitempty" json:"filter_selector,omitempty"`
	PerPage            int    `yaml:"per_page" json:"per_page"` // 0 reads every entry

	// Query parameters used to apply the date filter and to page through
	// results when the next control carries no usable href.
	StartParam string `yaml:"start_param" json:"start_param"`
	EndParam   string `yaml:"end_param" json:"end_param"`
	PageParam  string `yaml:"page_param,omitempty" json:"page_param,omitempty"`
	DateFormat string `yaml:"date_format" json:"date_format"` // Go time format string
}

// APIConfig defines the structured documents endpoint and its fixed query
// parameters.
type APIConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	WorkType string `yaml:"work_type" json:"work_type"`
	Format   string `yaml:"format" json:"format"`
	Accept   string `yaml:"accept" json:"accept"`
	Limit    int    `yaml:"limit" json:"limit"`
	Language string `yaml:"language" json:"language"` // preferred title language
}

// FeedConfig defines the RSS/Atom feed of adopted texts.
type FeedConfig struct {
	URL string `yaml:"url" json:"url"`
}

// NewListingConfig creates a listing configuration with default selectors
// for the given page URL.
func NewListingConfig(url string) ListingConfig {
	return ListingConfig{
		URL:               url,
		ContainerSelector: "ul.results",
		EntrySelector:     "li",
		TitleSelector:     "a",
		NextSelector:      "a.next, li.next a, a[rel=next]",
		FilterSelector:    "form.search-options",
		StartParam:        "dateFrom",
		EndParam:          "dateTo",
		PageParam:         "page",
		DateFormat:        "02/01/2006",
	}
}

// NewAPIConfig creates an API configuration with the default page size and
// content negotiation.
func NewAPIConfig(endpoint string) APIConfig {
	return APIConfig{
		Endpoint: endpoint,
		WorkType: "TEXT_ADOPTED",
		Format:   "application/ld+json",
		Accept:   "application/ld+json",
		Limit:    50,
		Language: "en",
	}
}
