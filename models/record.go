package models

// StyleSnapshot maps a style property name (camelCase, as exposed by
// CSSStyleDeclaration) to its computed value.
type StyleSnapshot map[string]string

// ElementRecord is the structured result for one matched root element.
type ElementRecord struct {
	// Index is the 1-based ordinal of the root element in document order.
	Index int `json:"element_index"`

	Main MainAttributes `json:"main_div"`

	// Image is nil when no descendant <img> could be captured.
	Image *ImageAttributes `json:"image,omitempty"`

	// Pointer is nil when no descendant click target could be captured.
	Pointer *PointerAttributes `json:"pointer,omitempty"`
}

// MainAttributes describes the root element itself.
type MainAttributes struct {
	Tag     string        `json:"tag"`
	Classes *string       `json:"classes"`
	TestID  *string       `json:"data-testid"`
	Style   StyleSnapshot `json:"styles"`
}

// ImageAttributes describes the first <img> beneath the root element.
type ImageAttributes struct {
	Src         *string       `json:"src"`
	Class       *string       `json:"class"`
	InlineStyle *string       `json:"inline_style"`
	TestID      *string       `json:"data-testid"`
	Style       StyleSnapshot `json:"computed_styles"`
}

// PointerAttributes describes the first click target beneath the root element.
type PointerAttributes struct {
	Class       *string       `json:"class"`
	InlineStyle *string       `json:"inline_style"`
	TestID      *string       `json:"data-testid"`
	Style       StyleSnapshot `json:"computed_styles"`
}

// Warning is a recoverable, per-record problem reported during a scrape.
type Warning struct {
	Index   int    `json:"element_index"`
	Block   string `json:"block"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeResult is the aggregated output of one scrape invocation.
type ScrapeResult struct {
	URL string `json:"url"`

	// Engine is the name of the session backend that served the scrape.
	Engine string `json:"engine"`

	// ElementCount is the number of root elements located on the page.
	// It can exceed len(Records) when a record failed hard and was skipped.
	ElementCount int `json:"element_count"`

	Records  []ElementRecord `json:"records"`
	Warnings []Warning       `json:"warnings"`

	NavigationMs int64 `json:"navigation_ms"`
	ExtractionMs int64 `json:"extraction_ms"`
}
